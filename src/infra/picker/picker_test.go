package picker

import (
	"bytes"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/khoatrg/songboard/src/features/config"
)

func testIntake() *Intake {
	return NewIntake(config.NewManager(&config.Config{
		Uploads: config.Uploads{
			MaxAudioMB: 1,
			MaxImageMB: 1,
			CoverSize:  100,
		},
	}))
}

func TestCheckAudio_RejectsOversized(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "big.mp3", MIME: "audio/mpeg", Data: make([]byte, 2<<20)}
	if err := intake.CheckAudio(f); err == nil {
		t.Fatal("expected oversized audio to be rejected")
	}
}

func TestCheckAudio_RejectsWrongType(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "notes.txt", MIME: "text/plain", Data: []byte("hello")}
	if err := intake.CheckAudio(f); err == nil {
		t.Fatal("expected non-audio file to be rejected")
	}
}

func TestCheckAudio_AcceptsMP3(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "song.mp3", MIME: "audio/mpeg", Data: []byte("data")}
	if err := intake.CheckAudio(f); err != nil {
		t.Fatalf("expected mp3 to pass, got %v", err)
	}
}

func TestCheckImage_RejectsOversized(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "big.jpg", MIME: "image/jpeg", Data: make([]byte, 2<<20)}
	if err := intake.CheckImage(f); err == nil {
		t.Fatal("expected oversized image to be rejected")
	}
}

func TestCheckImage_MIMEWithParams(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "cover", MIME: "image/jpeg; charset=binary", Data: []byte("x")}
	if err := intake.CheckImage(f); err != nil {
		t.Fatalf("expected parameterized MIME to pass, got %v", err)
	}
}

func TestSquareCover_CropsAndResizes(t *testing.T) {
	// 200x100 source, expect a 100x100 result after crop and resize
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	intake := testIntake()
	f := &File{Name: "wide.jpg", MIME: "image/jpeg", Data: buf.Bytes()}
	if err := intake.SquareCover(f); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	out, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 100 {
		t.Errorf("expected 100x100 cover, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
	if f.MIME != "image/jpeg" {
		t.Errorf("expected jpeg MIME after re-encode, got %q", f.MIME)
	}
}

func TestSquareCover_RejectsGarbage(t *testing.T) {
	intake := testIntake()
	f := &File{Name: "bad.jpg", MIME: "image/jpeg", Data: []byte("not an image")}
	err := intake.SquareCover(f)
	if err == nil {
		t.Fatal("expected decode failure")
	}
	if !strings.Contains(err.Error(), "decode") {
		t.Errorf("unexpected error: %v", err)
	}
}
