// Package relay manages the per-channel webhooks used to repost messages
// under the original author's name, and wraps the other Discord REST calls
// the coordinator needs.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/singleflight"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

// session is the subset of *discordgo.Session used here.
type session interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	Webhook(webhookID string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Post is the content of a relay repost.
type Post struct {
	Content   string
	Username  string
	AvatarURL string
}

type Manager struct {
	session session
	name    string

	group singleflight.Group
	mu    sync.RWMutex
	byID  map[string]*discordgo.Webhook // webhook id -> webhook with token
	byCh  map[string]*discordgo.Webhook // channel id -> usable webhook
}

// New returns a Manager that creates webhooks named name when a channel has
// none with a usable token.
func New(s session, name string) *Manager {
	return &Manager{
		session: s,
		name:    name,
		byID:    make(map[string]*discordgo.Webhook),
		byCh:    make(map[string]*discordgo.Webhook),
	}
}

// Ensure returns a webhook with a usable token for channelID, creating one if
// needed. Concurrent calls for the same channel share one lookup, so at most
// one webhook is created per channel. Errors wrap models.ErrProvision.
func (m *Manager) Ensure(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	m.mu.RLock()
	hook, ok := m.byCh[channelID]
	m.mu.RUnlock()
	if ok {
		return hook, nil
	}

	v, err, _ := m.group.Do(channelID, func() (interface{}, error) {
		return m.ensure(ctx, channelID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*discordgo.Webhook), nil
}

func (m *Manager) ensure(ctx context.Context, channelID string) (*discordgo.Webhook, error) {
	hooks, err := m.session.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: list webhooks for channel %s: %v", models.ErrProvision, channelID, err)
	}
	for _, h := range hooks {
		if h.Token != "" {
			m.remember(channelID, h)
			return h, nil
		}
	}

	h, err := m.session.WebhookCreate(channelID, m.name, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: create webhook in channel %s: %v", models.ErrProvision, channelID, err)
	}
	slog.Info("Created relay webhook", "channel", channelID, "webhook", h.ID)
	m.remember(channelID, h)
	return h, nil
}

func (m *Manager) remember(channelID string, h *discordgo.Webhook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[h.ID] = h
	if channelID != "" {
		m.byCh[channelID] = h
	}
}

func (m *Manager) forget(h *discordgo.Webhook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, h.ID)
	if cur, ok := m.byCh[h.ChannelID]; ok && cur.ID == h.ID {
		delete(m.byCh, h.ChannelID)
	}
}

// Repost sends post through hook. Mentions in the content are not re-pinged.
// Errors wrap models.ErrSend.
func (m *Manager) Repost(ctx context.Context, hook *discordgo.Webhook, post Post) (*discordgo.Message, error) {
	msg, err := m.session.WebhookExecute(hook.ID, hook.Token, true, &discordgo.WebhookParams{
		Content:         post.Content,
		Username:        post.Username,
		AvatarURL:       post.AvatarURL,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			// Deleted out from under us; the next Ensure will look again.
			m.forget(hook)
		}
		return nil, fmt.Errorf("%w: webhook %s: %v", models.ErrSend, hook.ID, err)
	}
	return msg, nil
}

// ReplaceCards swaps the preview cards of a message posted by webhookID.
// Errors wrap models.ErrEdit, or models.ErrLookup if the webhook is gone.
func (m *Manager) ReplaceCards(ctx context.Context, webhookID, messageID string, cards []*discordgo.MessageEmbed) error {
	hook, err := m.webhook(ctx, webhookID)
	if err != nil {
		return err
	}

	_, err = m.session.WebhookMessageEdit(hook.ID, hook.Token, messageID, &discordgo.WebhookEdit{
		Embeds: &cards,
	}, discordgo.WithContext(ctx))
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: message %s: %v", models.ErrLookup, messageID, err)
		}
		return fmt.Errorf("%w: message %s: %v", models.ErrEdit, messageID, err)
	}
	return nil
}

func (m *Manager) webhook(ctx context.Context, webhookID string) (*discordgo.Webhook, error) {
	m.mu.RLock()
	hook, ok := m.byID[webhookID]
	m.mu.RUnlock()
	if ok {
		return hook, nil
	}

	hook, err := m.session.Webhook(webhookID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: webhook %s: %v", models.ErrLookup, webhookID, err)
	}
	if hook.Token == "" {
		return nil, fmt.Errorf("%w: webhook %s has no token", models.ErrEdit, webhookID)
	}
	m.remember("", hook)
	return hook, nil
}

// Message fetches the current state of a message. Errors wrap models.ErrLookup.
func (m *Manager) Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	msg, err := m.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: message %s in channel %s: %v", models.ErrLookup, messageID, channelID, err)
	}
	return msg, nil
}

// DeleteMessage deletes a message, recording reason in the audit log.
func (m *Manager) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	err := m.session.ChannelMessageDelete(channelID, messageID,
		discordgo.WithContext(ctx),
		discordgo.WithAuditLogReason(reason),
	)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("%w: message %s: %v", models.ErrLookup, messageID, err)
		}
		return fmt.Errorf("delete message %s: %w", messageID, err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == code
}

// DisplayName is the name a repost of u's message is shown under: the legacy
// "name#1234" tag when the account still has one, otherwise the global
// display name, otherwise the username.
func DisplayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator != "" && u.Discriminator != "0" {
		return u.Username + "#" + u.Discriminator
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
