package processor

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
	"github.com/aiotter/discord-amazon-url-shortener/internal/relay"
)

// Relay abstracts the outbound Discord requests.
type Relay interface {
	Ensure(ctx context.Context, channelID string) (*discordgo.Webhook, error)
	Repost(ctx context.Context, hook *discordgo.Webhook, post relay.Post) (*discordgo.Message, error)
	ReplaceCards(ctx context.Context, webhookID, messageID string, cards []*discordgo.MessageEmbed) error
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID, reason string) error
}

// ProductFetcher abstracts the product page scraper.
type ProductFetcher interface {
	Fetch(ctx context.Context, productURL string) (models.ProductData, error)
}

// Claims abstracts the in-flight message set.
type Claims interface {
	TryClaim(id string) (release func(), err error)
}
