// Package enricher fills platform-generated preview cards for product links
// with live product data.
package enricher

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/aiotter/discord-amazon-url-shortener/internal/link"
	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

// Footer marks a card that has already been enriched.
const Footer = "Powered by Amazon URL Shortener (@aiotter)"

const (
	priceFieldName  = "価格"
	ratingFieldName = "評価"
)

// Fetcher looks up product data for a product URL.
type Fetcher interface {
	Fetch(ctx context.Context, productURL string) (models.ProductData, error)
}

// IsProcessed reports whether card already carries the footer marker.
func IsProcessed(card *discordgo.MessageEmbed) bool {
	return card != nil && card.Footer != nil && card.Footer.Text == Footer
}

// Applicable reports whether card is an unprocessed product card.
func Applicable(card *discordgo.MessageEmbed) bool {
	return card != nil && !IsProcessed(card) && link.Contains(card.URL)
}

// Enrich returns a copy of card with data applied and the footer marker set.
// Cards that are already processed or that do not point at a product are
// returned as is. Absent fields are omitted, never blanked.
func Enrich(card *discordgo.MessageEmbed, data models.ProductData) *discordgo.MessageEmbed {
	if !Applicable(card) {
		return card
	}

	out := *card
	if data.ImageURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: data.ImageURL}
	}
	if data.Title != "" {
		out.Description = data.Title
	}

	out.Fields = append([]*discordgo.MessageEmbedField(nil), card.Fields...)
	if data.Price != "" {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: priceFieldName, Value: data.Price, Inline: true})
	}
	if data.Rating != "" {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: ratingFieldName, Value: data.Rating, Inline: true})
	}

	out.Footer = &discordgo.MessageEmbedFooter{Text: Footer}
	return &out
}

// EnrichAll enriches cards one at a time, in order. A card whose product
// fetch fails is kept unchanged and does not stop the rest of the batch.
// The second result reports whether any card changed.
func EnrichAll(ctx context.Context, fetcher Fetcher, cards []*discordgo.MessageEmbed) ([]*discordgo.MessageEmbed, bool) {
	out := make([]*discordgo.MessageEmbed, 0, len(cards))
	changed := false
	for _, card := range cards {
		if !Applicable(card) {
			out = append(out, card)
			continue
		}

		target := card.URL
		if l, ok := link.Parse(card.URL); ok {
			target = link.Canonical(l)
		}

		data, err := fetcher.Fetch(ctx, target)
		if err != nil {
			slog.Warn("Failed to fetch product data, keeping card as is", "url", target, "error", err)
			out = append(out, card)
			continue
		}
		out = append(out, Enrich(card, data))
		changed = true
	}
	return out, changed
}
