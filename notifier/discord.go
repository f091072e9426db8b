package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricehound/models"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// embedColor is the green used for price drop embeds.
const embedColor = 0x2ecc71

// DiscordNotifier posts target-reached embeds to one Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
	send      func(channelID string, embed *discordgo.MessageEmbed) error
	logger    *zap.Logger
}

// NewDiscordNotifier creates a bot session for token. Only the REST API is used,
// so the gateway connection is never opened.
func NewDiscordNotifier(token, channelID string, logger *zap.Logger) (*DiscordNotifier, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("discord token and channel id are required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	n := &DiscordNotifier{
		session:   session,
		channelID: channelID,
		logger:    logger.Named("discord-notifier"),
	}
	n.send = func(channelID string, embed *discordgo.MessageEmbed) error {
		_, err := n.session.ChannelMessageSendEmbed(channelID, embed)
		return err
	}
	return n, nil
}

// NotifyTargetReached implements Notifier.
func (n *DiscordNotifier) NotifyTargetReached(ctx context.Context, product models.TrackedProduct, price decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	embed := TargetReachedEmbed(product, price, time.Now())
	if err := n.send(n.channelID, embed); err != nil {
		n.logger.Error("Failed to send Discord message",
			zap.Error(err),
			zap.String("channel_id", n.channelID))
		return fmt.Errorf("failed to notify product %d: %w", product.ID, err)
	}

	n.logger.Info("Sent notification",
		zap.String("channel_id", n.channelID),
		zap.String("product", product.ProductName))
	return nil
}

// TargetReachedEmbed builds the message sent when product drops to price.
func TargetReachedEmbed(product models.TrackedProduct, price decimal.Decimal, at time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Price",
			Value:  "R$ " + price.StringFixed(2),
			Inline: true,
		},
		{
			Name:   "Target",
			Value:  "R$ " + product.TargetPrice.StringFixed(2),
			Inline: true,
		},
		{
			Name:   "Store",
			Value:  product.SiteName,
			Inline: true,
		},
	}

	if product.TargetPrice.GreaterThan(price) {
		below := product.TargetPrice.Sub(price)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Below target",
			Value:  "R$ " + below.StringFixed(2),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       product.ProductName,
		URL:         product.ProductURL,
		Description: "Target price reached",
		Color:       embedColor,
		Fields:      fields,
		Timestamp:   at.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "pricehound • " + product.Category.DisplayName(),
		},
	}
}
