// Package gateway owns the Discord gateway connection and hands message
// events to the coordinator.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/aiotter/discord-amazon-url-shortener/internal/processor"
)

// Intents are the gateway intents the bot needs to read message content.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Handler receives message events.
type Handler interface {
	HandleCreate(ctx context.Context, m *discordgo.Message) processor.Outcome
	HandleRawUpdate(ctx context.Context, eventType string, raw json.RawMessage) processor.Outcome
}

type Bot struct {
	session *discordgo.Session
	handler Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	removers []func()
	wg       sync.WaitGroup
}

// New creates a bot for token. No connection is made until Start.
func New(token string) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	// Nothing reads the guild/channel cache.
	s.StateEnabled = false

	ctx, cancel := context.WithCancel(context.Background())
	return &Bot{
		session: s,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Session is the REST session shared with the relay manager.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start registers h for message events and opens the gateway connection.
// Each event is handled on its own goroutine.
func (b *Bot) Start(h Handler) error {
	b.mu.Lock()
	b.handler = h
	b.removers = append(b.removers,
		b.session.AddHandler(b.onReady),
		b.session.AddHandler(b.onMessageCreate),
		b.session.AddHandler(b.onEvent),
	)
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}
	return nil
}

// Stop shuts the bot down: handlers are removed so no new events are
// accepted, the gateway connection is closed, and in-flight handlers are
// given until ctx is done to finish. Whatever is still running after that
// has its context cancelled.
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.closing = true
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil
	b.mu.Unlock()

	if err := b.session.Close(); err != nil {
		slog.Warn("Error closing gateway connection", "error", err)
	}

	drained := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(drained)
	}()

	defer b.cancel()
	select {
	case <-drained:
		slog.Info("All in-flight handlers finished")
		return nil
	case <-ctx.Done():
		slog.Warn("Shutdown grace period elapsed with handlers still running")
		return ctx.Err()
	}
}

// track registers a running handler. It returns false once Stop has begun.
func (b *Bot) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	attrs := []any{"guilds", len(r.Guilds)}
	if r.User != nil {
		attrs = append(attrs, "user", r.User.Username)
	}
	slog.Info("Successfully connected to gateway", attrs...)
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || !b.track() {
		return
	}
	defer b.wg.Done()
	defer recoverHandler("message_create")

	b.handler.HandleCreate(b.ctx, m.Message)
}

func (b *Bot) onEvent(_ *discordgo.Session, e *discordgo.Event) {
	if e.Type == "" || !b.track() {
		return
	}
	defer b.wg.Done()
	defer recoverHandler(e.Type)

	b.handler.HandleRawUpdate(b.ctx, e.Type, e.RawData)
}

func recoverHandler(event string) {
	if r := recover(); r != nil {
		slog.Error("Panic in event handler", "event", event, "panic", r)
	}
}
