package hosting

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/khoatrg/songboard/src/features/config"
	"github.com/khoatrg/songboard/src/features/manage"
	"github.com/khoatrg/songboard/src/music"
)

// TelegramBot exposes the catalog over a small Telegram command set and
// pushes admin notifications after saves and deletes.
type TelegramBot struct {
	bot      *tgbotapi.BotAPI
	config   *config.Manager
	service  *manage.Service
	updates  tgbotapi.UpdatesChannel
	stopChan chan struct{}
}

// NewTelegramBot creates a new Telegram bot instance
func NewTelegramBot(cfg *config.Manager, manageService *manage.Service) (*TelegramBot, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram bot is disabled in configuration")
	}
	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot initialized", "username", bot.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := bot.GetUpdatesChan(updateConfig)

	return &TelegramBot{
		bot:      bot,
		config:   cfg,
		service:  manageService,
		updates:  updates,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins listening for Telegram updates
func (t *TelegramBot) Start() {
	slog.Info("Starting Telegram bot listener")

	for {
		select {
		case update := <-t.updates:
			if update.Message != nil {
				go t.handleMessage(update)
			}
		case <-t.stopChan:
			slog.Info("Stopping Telegram bot listener")
			return
		}
	}
}

// Stop gracefully stops the bot
func (t *TelegramBot) Stop() {
	close(t.stopChan)
}

// SongSaved notifies the configured chat that a save landed.
func (t *TelegramBot) SongSaved(song *music.Song) {
	chatID := t.config.Get().Telegram.ChatID
	if chatID == 0 {
		return
	}
	t.sendMessage(chatID, fmt.Sprintf("💾 Saved: %s — %s", song.Title, song.Artist))
}

// SongDeleted notifies the configured chat that a record was removed.
func (t *TelegramBot) SongDeleted(title string) {
	chatID := t.config.Get().Telegram.ChatID
	if chatID == 0 {
		return
	}
	t.sendMessage(chatID, fmt.Sprintf("🗑 Deleted: %s", title))
}

// handleMessage processes incoming messages
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	message := update.Message
	chatID := message.Chat.ID

	allowedUsers := t.config.Get().Telegram.AllowedUsers
	if len(allowedUsers) == 0 {
		slog.Warn("No allowed users configured", "chat_id", chatID)
		t.sendMessage(chatID, "❌ Access denied: No users configured. Please add users to the config.")
		return
	}

	username := message.From.UserName
	if username == "" {
		username = message.From.FirstName
		if message.From.LastName != "" {
			username += " " + message.From.LastName
		}
	}
	if !slices.Contains(allowedUsers, username) {
		slog.Warn("Unauthorized user", "username", username, "chat_id", chatID)
		t.sendMessage(chatID, "Unknown user, please add your user to the config")
		return
	}

	if message.IsCommand() {
		t.handleCommand(message)
		return
	}
	t.sendMessage(chatID, "🤖 Send /help to see available commands")
}

// handleCommand processes bot commands
func (t *TelegramBot) handleCommand(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	command := message.Command()
	args := message.CommandArguments()

	slog.Debug("Processing command", "command", command, "args", args, "chat_id", chatID)

	switch command {
	case "help", "start", "menu":
		t.handleHelp(chatID)
	case "stats":
		t.handleStats(chatID)
	case "recent":
		t.handleRecent(chatID)
	case "search":
		t.handleSearch(chatID, args)
	default:
		t.sendMessage(chatID, "❌ Unknown command. Send /help to see available commands.")
	}
}

func (t *TelegramBot) handleHelp(chatID int64) {
	var sb strings.Builder
	sb.WriteString("🎵 *Songboard*\n\n")
	sb.WriteString("/stats - Collection size and totals\n")
	sb.WriteString("/recent - Recently updated songs\n")
	sb.WriteString("/search <text> - Find songs by title, artist or album\n")
	sb.WriteString("/help - This message\n")
	t.sendMarkdown(chatID, sb.String())
}

func (t *TelegramBot) handleStats(chatID int64) {
	songs := t.service.Songs("")
	var totalViews int64
	for _, s := range songs {
		totalViews += s.Views
	}
	t.sendMessage(chatID, fmt.Sprintf("📊 %d songs, %s total views",
		len(songs), music.FormatViewCount(totalViews)))
}

func (t *TelegramBot) handleRecent(chatID int64) {
	songs := t.service.Songs("")
	if len(songs) == 0 {
		t.sendMessage(chatID, "The collection is empty")
		return
	}

	recent := make([]*music.Song, len(songs))
	copy(recent, songs)
	slices.SortFunc(recent, func(a, b *music.Song) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}

	var sb strings.Builder
	sb.WriteString("🕐 Recently updated:\n")
	for _, s := range recent {
		sb.WriteString(fmt.Sprintf("• %s — %s\n", s.Title, s.Artist))
	}
	t.sendMessage(chatID, sb.String())
}

func (t *TelegramBot) handleSearch(chatID int64, args string) {
	query := strings.TrimSpace(args)
	if query == "" {
		t.sendMessage(chatID, "Usage: /search <text>")
		return
	}

	matches := t.service.Songs(query)
	if len(matches) == 0 {
		t.sendMessage(chatID, fmt.Sprintf("No songs matching %q", query))
		return
	}
	if len(matches) > 10 {
		matches = matches[:10]
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔍 %d match(es):\n", len(matches)))
	for _, s := range matches {
		sb.WriteString(fmt.Sprintf("• %s — %s (%s views)\n",
			s.Title, s.Artist, music.FormatViewCount(s.Views)))
	}
	t.sendMessage(chatID, sb.String())
}

func (t *TelegramBot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram message", "error", err, "chat_id", chatID)
	}
}

func (t *TelegramBot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram message", "error", err, "chat_id", chatID)
	}
}
