// Package telegram connects the dispatcher to a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/drewdunne/agenda/internal/config"
	"github.com/drewdunne/agenda/internal/dispatch"
	"github.com/drewdunne/agenda/internal/metrics"
	"github.com/drewdunne/agenda/internal/respond"
	"github.com/drewdunne/agenda/internal/transcribe"
)

const (
	defaultDedupSize = 2048

	// maxVoiceBytes is the largest voice note downloaded (Telegram's bot
	// download limit).
	maxVoiceBytes = 20 << 20

	defaultVoiceMime = "audio/ogg"
)

// API is the subset of the Telegram Bot API the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Dispatcher runs a conversational turn.
type Dispatcher interface {
	HandleUtterance(ctx context.Context, userID, text string, now time.Time) dispatch.Outcome
}

// Authorizer reports and starts calendar authorization.
type Authorizer interface {
	Authorized() bool
	AuthURL() string
}

// Bot handles Telegram updates.
type Bot struct {
	api         API
	dispatcher  Dispatcher
	formatter   *respond.Formatter
	transcriber transcribe.Transcriber
	auth        Authorizer

	httpClient *http.Client
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger

	seen *lru.Cache[int, struct{}]
	wg   sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
}

// Option configures a Bot.
type Option func(*Bot)

// WithHTTPClient sets the client used to download voice notes.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bot) {
		b.httpClient = c
	}
}

// WithLocation sets the time zone turns are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(b *Bot) {
		b.loc = loc
	}
}

// WithClock overrides the wall clock (for testing).
func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		b.now = now
	}
}

// WithDedupSize sets how many update IDs are remembered to drop redeliveries.
func WithDedupSize(n int) Option {
	return func(b *Bot) {
		if n > 0 {
			b.seen, _ = lru.New[int, struct{}](n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// New creates a Bot.
func New(api API, d Dispatcher, f *respond.Formatter, tr transcribe.Transcriber, auth Authorizer, opts ...Option) *Bot {
	seen, _ := lru.New[int, struct{}](defaultDedupSize)
	b := &Bot{
		api:         api,
		dispatcher:  d,
		formatter:   f,
		transcriber: tr,
		auth:        auth,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		loc:         time.Local,
		now:         time.Now,
		logger:      slog.Default(),
		seen:        seen,
		queues:      make(map[int64][]tgbotapi.Update),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "telegram")
	return b
}

// Connect logs in to the Bot API.
func Connect(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return api, nil
}

// Listen long-polls api until ctx is cancelled.
func (b *Bot) Listen(ctx context.Context, api *tgbotapi.BotAPI, pollTimeout int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := api.GetUpdatesChan(u)

	b.logger.Info("polling for updates", "bot", api.Self.UserName)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	return b.Run(ctx, updates)
}

// Run handles updates until ctx is cancelled or the channel closes. Updates
// from one sender are handled one at a time in arrival order; different
// senders are handled concurrently. Run waits for in-flight updates before
// returning.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	defer b.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if dup, _ := b.seen.ContainsOrAdd(update.UpdateID, struct{}{}); dup {
				b.logger.Debug("dropping redelivered update", "update_id", update.UpdateID)
				continue
			}
			b.enqueue(ctx, update)
		}
	}
}

// enqueue appends update to its sender's queue, starting a worker for the
// sender when none is running.
func (b *Bot) enqueue(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	sender := msg.From.ID

	b.mu.Lock()
	if pending, busy := b.queues[sender]; busy {
		b.queues[sender] = append(pending, update)
		b.mu.Unlock()
		return
	}
	b.queues[sender] = nil
	b.mu.Unlock()

	b.wg.Add(1)
	go b.drain(ctx, sender, update)
}

// drain handles next and then the sender's queued updates in order. The
// queue is removed once it is empty or ctx is done.
func (b *Bot) drain(ctx context.Context, sender int64, next tgbotapi.Update) {
	defer b.wg.Done()

	for {
		b.Handle(ctx, next)

		b.mu.Lock()
		pending := b.queues[sender]
		if len(pending) == 0 || ctx.Err() != nil {
			delete(b.queues, sender)
			b.mu.Unlock()
			if len(pending) > 0 {
				b.logger.Warn("dropping queued updates on shutdown", "user_id", sender, "count", len(pending))
			}
			return
		}
		next = pending[0]
		b.queues[sender] = pending[1:]
		b.mu.Unlock()
	}
}

// Handle processes one update.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	logger := b.logger.With("user_id", userID, "update_id", update.UpdateID)

	switch {
	case msg.IsCommand():
		metrics.MessageReceived("command")
		b.handleCommand(msg)
	case msg.Voice != nil:
		metrics.MessageReceived("voice")
		b.handleVoice(ctx, logger, msg, userID)
	case msg.Text != "":
		metrics.MessageReceived("text")
		b.handleText(ctx, msg.Chat.ID, userID, msg.Text)
	default:
		logger.Debug("ignoring message without text or voice")
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help", "ayuda":
		b.reply(msg.Chat.ID, respond.Welcome())
	case "autorizar":
		if b.auth.Authorized() {
			b.reply(msg.Chat.ID, "✅ El calendario ya está autorizado. Si necesitas renovar el acceso, abre:\n"+b.auth.AuthURL())
			return
		}
		b.reply(msg.Chat.ID, "🔐 Abre este enlace para darme acceso a tu calendario:\n"+b.auth.AuthURL())
	default:
		b.reply(msg.Chat.ID, "No conozco ese comando. Usa /start para ver lo que puedo hacer.")
	}
}

func (b *Bot) handleText(ctx context.Context, chatID int64, userID, text string) {
	out := b.dispatcher.HandleUtterance(ctx, userID, text, b.now().In(b.loc))
	b.reply(chatID, b.formatter.Format(ctx, out))
}

func (b *Bot) handleVoice(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message, userID string) {
	b.reply(msg.Chat.ID, "🎤 Procesando audio...")

	text, err := b.transcribeVoice(ctx, msg.Voice)
	if err != nil {
		metrics.TranscriptionFailed()
		logger.Warn("transcription failed", "error", err)
		b.reply(msg.Chat.ID, respond.Error(fmt.Errorf("no pude transcribir el audio: %w", err)))
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("📝 Escuché: \"%s\"", text))
	b.handleText(ctx, msg.Chat.ID, userID, text)
}

func (b *Bot) transcribeVoice(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	audio, err := b.download(ctx, voice.FileID)
	if err != nil {
		return "", err
	}
	mime := voice.MimeType
	if mime == "" {
		mime = defaultVoiceMime
	}
	return b.transcriber.Transcribe(ctx, audio, mime)
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if len(data) > maxVoiceBytes {
		return nil, fmt.Errorf("voice note larger than %d bytes", maxVoiceBytes)
	}
	return data, nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}
