// Package processor decides what to do with each message event: repost a
// message with shortened product links, or fill in the preview cards of a
// relayed message.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/aiotter/discord-amazon-url-shortener/internal/enricher"
	"github.com/aiotter/discord-amazon-url-shortener/internal/link"
	"github.com/aiotter/discord-amazon-url-shortener/internal/metrics"
	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
	"github.com/aiotter/discord-amazon-url-shortener/internal/relay"
)

// DeleteReason is recorded in the audit log when an original message is
// replaced by its relay repost.
const DeleteReason = "Shortening Amazon URL"

const (
	pathCreate = "create"
	pathUpdate = "update"

	eventMessageUpdate = "MESSAGE_UPDATE"
)

// Outcome is the terminal state of one pass.
type Outcome string

const (
	OutcomeIgnored         Outcome = "ignored"
	OutcomeInFlight        Outcome = "in_flight"
	OutcomeProvisionFailed Outcome = "provision_failed"
	OutcomeReposted        Outcome = "reposted"
	OutcomeSendFailed      Outcome = "send_failed"
	OutcomeDeleteFailed    Outcome = "delete_failed"
	OutcomeEnriched        Outcome = "enriched"
	OutcomeUnchanged       Outcome = "unchanged"
	OutcomeEditFailed      Outcome = "edit_failed"
	OutcomeLookupFailed    Outcome = "lookup_failed"
)

type action int

const (
	actionNone action = iota
	actionEnrich
	actionRepost
)

type Coordinator struct {
	relay   Relay
	fetcher ProductFetcher
	claims  Claims
}

func New(r Relay, f ProductFetcher, claims Claims) *Coordinator {
	return &Coordinator{relay: r, fetcher: f, claims: claims}
}

// HandleCreate processes a newly created message.
func (c *Coordinator) HandleCreate(ctx context.Context, m *discordgo.Message) Outcome {
	metrics.EventsTotal.WithLabelValues(pathCreate).Inc()
	log := slog.With("pass", uuid.NewString(), "path", pathCreate, "channel", m.ChannelID, "message", m.ID)

	outcome := c.handleCreate(ctx, log, m)
	metrics.OutcomesTotal.WithLabelValues(pathCreate, string(outcome)).Inc()
	log.Debug("Pass finished", "outcome", outcome)
	return outcome
}

func createAction(m *discordgo.Message) action {
	if !link.Contains(m.Content) {
		return actionNone
	}
	if m.WebhookID != "" {
		// Webhook messages are never reposted. Their cards are filled in here
		// when Discord attached them before the create event was sent.
		if len(m.Embeds) > 0 {
			return actionEnrich
		}
		return actionNone
	}
	return actionRepost
}

func (c *Coordinator) handleCreate(ctx context.Context, log *slog.Logger, m *discordgo.Message) Outcome {
	act := createAction(m)
	if act == actionNone {
		return OutcomeIgnored
	}

	release, err := c.claims.TryClaim(m.ID)
	if err != nil {
		log.Debug("Message already being processed", "error", err)
		return OutcomeInFlight
	}
	defer release()

	hook, err := c.relay.Ensure(ctx, m.ChannelID)
	if err != nil {
		log.Error("Failed to obtain relay webhook", "error", err)
		return OutcomeProvisionFailed
	}

	if act == actionEnrich {
		return c.enrich(ctx, log, m)
	}
	return c.repost(ctx, log, hook, m)
}

func (c *Coordinator) repost(ctx context.Context, log *slog.Logger, hook *discordgo.Webhook, m *discordgo.Message) Outcome {
	post := relay.Post{
		Content:  link.Shorten(m.Content),
		Username: relay.DisplayName(m.Author),
	}
	if m.Author != nil {
		post.AvatarURL = m.Author.AvatarURL("")
	}

	// The original stays in place unless the repost went through.
	if _, err := c.relay.Repost(ctx, hook, post); err != nil {
		log.Error("Failed to repost message", "webhook", hook.ID, "error", err)
		return OutcomeSendFailed
	}

	if err := c.relay.DeleteMessage(ctx, m.ChannelID, m.ID, DeleteReason); err != nil {
		if errors.Is(err, models.ErrLookup) {
			log.Info("Original message already gone", "error", err)
		} else {
			log.Error("Failed to delete original message", "error", err)
		}
		return OutcomeDeleteFailed
	}

	log.Info("Reposted message with shortened links", "webhook", hook.ID)
	return OutcomeReposted
}

func (c *Coordinator) enrich(ctx context.Context, log *slog.Logger, m *discordgo.Message) Outcome {
	cards, changed := enricher.EnrichAll(ctx, c.fetcher, m.Embeds)
	if !changed {
		return OutcomeUnchanged
	}

	if err := c.relay.ReplaceCards(ctx, m.WebhookID, m.ID, cards); err != nil {
		if errors.Is(err, models.ErrLookup) {
			log.Info("Message gone before its cards could be replaced", "error", err)
			return OutcomeLookupFailed
		}
		log.Error("Failed to replace preview cards", "webhook", m.WebhookID, "error", err)
		return OutcomeEditFailed
	}

	log.Info("Enriched preview cards", "cards", len(cards))
	return OutcomeEnriched
}

// messageUpdate is the part of a MESSAGE_UPDATE payload read before the
// message is re-fetched.
type messageUpdate struct {
	ID              string  `json:"id"`
	ChannelID       string  `json:"channel_id"`
	EditedTimestamp *string `json:"edited_timestamp"`
}

// HandleRawUpdate processes a raw gateway dispatch. Only MESSAGE_UPDATE
// events without an edit timestamp are acted on; those are sent when
// Discord attaches preview cards to an existing message.
func (c *Coordinator) HandleRawUpdate(ctx context.Context, eventType string, raw json.RawMessage) Outcome {
	if eventType != eventMessageUpdate {
		return OutcomeIgnored
	}
	metrics.EventsTotal.WithLabelValues(pathUpdate).Inc()

	var upd messageUpdate
	if err := json.Unmarshal(raw, &upd); err != nil || upd.ID == "" || upd.ChannelID == "" {
		slog.Warn("Malformed MESSAGE_UPDATE payload", "error", err)
		metrics.OutcomesTotal.WithLabelValues(pathUpdate, string(OutcomeIgnored)).Inc()
		return OutcomeIgnored
	}

	log := slog.With("pass", uuid.NewString(), "path", pathUpdate, "channel", upd.ChannelID, "message", upd.ID)
	outcome := c.handleUpdate(ctx, log, upd)
	metrics.OutcomesTotal.WithLabelValues(pathUpdate, string(outcome)).Inc()
	log.Debug("Pass finished", "outcome", outcome)
	return outcome
}

func (c *Coordinator) handleUpdate(ctx context.Context, log *slog.Logger, upd messageUpdate) Outcome {
	if upd.EditedTimestamp != nil {
		// User edit.
		return OutcomeIgnored
	}

	release, err := c.claims.TryClaim(upd.ID)
	if err != nil {
		log.Debug("Message already being processed", "error", err)
		return OutcomeInFlight
	}
	defer release()

	m, err := c.relay.Message(ctx, upd.ChannelID, upd.ID)
	if err != nil {
		// Usually the original that was just replaced by its repost.
		log.Info("Updated message no longer available", "error", err)
		return OutcomeLookupFailed
	}

	if m.WebhookID == "" || len(m.Embeds) == 0 {
		return OutcomeIgnored
	}
	return c.enrich(ctx, log, m)
}
