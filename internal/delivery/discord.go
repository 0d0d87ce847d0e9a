package delivery

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/serialagent/gateway/internal/config"
)

// sendDiscord posts content to a Discord incoming webhook, adapted from
// internal/channels/discord.go's bot-session send path down to discordgo's
// webhook-execute call — a delivery target has no bot identity or inbound
// message loop to maintain, just the library's webhook client plumbing and
// the same 2000-char chunking discord.go's sendChunked already applies.
func sendDiscord(cfg config.DiscordTargetConfig, content string) error {
	id, token, err := parseDiscordWebhookURL(cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("discord delivery: %w", err)
	}

	session, err := discordgo.New("")
	if err != nil {
		return fmt.Errorf("discord delivery: create session: %w", err)
	}

	const maxLen = 2000
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			chunk = chunk[:maxLen]
		}
		content = content[len(chunk):]
		if _, err := session.WebhookExecute(id, token, false, &discordgo.WebhookParams{Content: chunk}); err != nil {
			return fmt.Errorf("discord delivery: webhook execute: %w", err)
		}
	}
	return nil
}

// parseDiscordWebhookURL extracts the webhook id/token pair discordgo's
// WebhookExecute wants out of the full webhook URL an operator copy-pastes
// from Discord's channel settings (".../api/webhooks/{id}/{token}").
func parseDiscordWebhookURL(webhookURL string) (id, token string, err error) {
	parts := strings.Split(strings.TrimRight(webhookURL, "/"), "/")
	for i, p := range parts {
		if p == "webhooks" && i+2 < len(parts) {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("invalid discord webhook URL %q", webhookURL)
}
