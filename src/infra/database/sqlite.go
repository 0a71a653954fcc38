package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/khoatrg/songboard/src/music"
	_ "github.com/mattn/go-sqlite3"
)

// SqliteCatalog is a SQLite implementation of the Catalog interface.
type SqliteCatalog struct {
	db *sql.DB
}

// NewSqliteCatalog creates a new SqliteCatalog.
func NewSqliteCatalog(path string) (*SqliteCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteCatalog{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS songs (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT,
			album TEXT,
			genre TEXT,
			release_year TEXT,
			image_url TEXT,
			audio_url TEXT,
			views INTEGER DEFAULT 0,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS song_attributes (
			id INTEGER PRIMARY KEY,
			song_id TEXT,
			key TEXT NOT NULL,
			value TEXT,
			UNIQUE(song_id, key) ON CONFLICT REPLACE,
			FOREIGN KEY (song_id) REFERENCES songs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);
		CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);
		CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs(genre);
		CREATE INDEX IF NOT EXISTS idx_songs_views ON songs(views);
		CREATE INDEX IF NOT EXISTS idx_song_attributes_song ON song_attributes(song_id);
	`)
	return err
}

// AddSong adds a song to the database, assigning an ID when absent.
func (d *SqliteCatalog) AddSong(ctx context.Context, song *music.Song) error {
	// Validate song using domain validation
	if err := song.Validate(); err != nil {
		slog.Error("AddSong: validation failed", "error", err, "songID", song.ID)
		return err
	}
	if song.ID == "" {
		song.ID = uuid.New().String()
	}
	if song.UpdatedAt.IsZero() {
		song.UpdatedAt = time.Now()
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
    INSERT INTO songs (id, title, artist, album, genre, release_year, image_url, audio_url, views, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
  `, song.ID, song.Title, song.Artist, song.Album, song.Genre, song.ReleaseYear,
		song.ImageURL, song.AudioURL, song.Views, song.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}

	for key, value := range song.Attributes {
		if _, err := tx.ExecContext(ctx, `
      INSERT INTO song_attributes (song_id, key, value) VALUES (?, ?, ?)
    `, song.ID, key, value); err != nil {
			return fmt.Errorf("failed to insert song attribute %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// GetSong returns a single song by ID.
func (d *SqliteCatalog) GetSong(ctx context.Context, id string) (*music.Song, error) {
	row := d.db.QueryRowContext(ctx, `
    SELECT id, title, artist, album, genre, release_year, image_url, audio_url, views, updated_at
    FROM songs WHERE id = ?
  `, id)

	song, err := scanSong(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("song %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	if err := d.loadAttributes(ctx, song); err != nil {
		return nil, err
	}
	return song, nil
}

// GetSongs returns the full collection ordered by the given sort key.
func (d *SqliteCatalog) GetSongs(ctx context.Context, sort music.SortKey) ([]*music.Song, error) {
	rows, err := d.db.QueryContext(ctx, `
    SELECT id, title, artist, album, genre, release_year, image_url, audio_url, views, updated_at
    FROM songs ORDER BY `+orderClause(sort))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []*music.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, song := range songs {
		if err := d.loadAttributes(ctx, song); err != nil {
			return nil, err
		}
	}
	return songs, nil
}

// UpdateSong applies a partial merge to a single song. Only set patch
// fields are written; updated_at is stamped on every call.
func (d *SqliteCatalog) UpdateSong(ctx context.Context, id string, patch music.Patch) error {
	set := []string{"updated_at = ?"}
	args := []any{patch.UpdatedAt.Format(time.RFC3339)}

	appendField := func(column string, value *string) {
		if value != nil {
			set = append(set, column+" = ?")
			args = append(args, *value)
		}
	}
	appendField("title", patch.Title)
	appendField("artist", patch.Artist)
	appendField("album", patch.Album)
	appendField("genre", patch.Genre)
	appendField("release_year", patch.ReleaseYear)
	appendField("image_url", patch.ImageURL)
	appendField("audio_url", patch.AudioURL)

	args = append(args, id)
	query := "UPDATE songs SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id = ?"

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update song %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("song %s not found", id)
	}
	return nil
}

// DeleteSong removes a song and its attributes.
func (d *SqliteCatalog) DeleteSong(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM song_attributes WHERE song_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete song attributes: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("song %s not found", id)
	}

	return tx.Commit()
}

// GetSongsCount returns the total number of songs.
func (d *SqliteCatalog) GetSongsCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count)
	return count, err
}

func orderClause(sort music.SortKey) string {
	switch sort {
	case music.SortByArtist:
		return "artist COLLATE NOCASE ASC"
	case music.SortByGenre:
		return "genre COLLATE NOCASE ASC"
	case music.SortByViews:
		return "views DESC"
	default:
		return "title COLLATE NOCASE ASC"
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*music.Song, error) {
	var song music.Song
	var updatedAt sql.NullString
	err := row.Scan(&song.ID, &song.Title, &song.Artist, &song.Album, &song.Genre,
		&song.ReleaseYear, &song.ImageURL, &song.AudioURL, &song.Views, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid && updatedAt.String != "" {
		if parsed, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			song.UpdatedAt = parsed
		}
	}
	return &song, nil
}

func (d *SqliteCatalog) loadAttributes(ctx context.Context, song *music.Song) error {
	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM song_attributes WHERE song_id = ?`, song.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		if song.Attributes == nil {
			song.Attributes = make(map[string]string)
		}
		song.Attributes[key] = value
	}
	return rows.Err()
}
