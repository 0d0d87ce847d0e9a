package config

// DeliveryConfig configures outbound delivery targets a schedule can route
// Delivery records to (spec §3 "Delivery", §4.5 execution). Named targets are
// referenced by Schedule.DeliveryTargets entries ("in_app", "webhook:<name>",
// "discord:<name>", "telegram:<name>").
type DeliveryConfig struct {
	Webhooks  map[string]WebhookTargetConfig  `json:"webhooks,omitempty"`
	Discord   map[string]DiscordTargetConfig  `json:"discord,omitempty"`
	Telegram  map[string]TelegramTargetConfig `json:"telegram,omitempty"`
	MaxRetries int                            `json:"max_retries,omitempty"` // default 3
}

// WebhookTargetConfig is a signed-POST delivery target.
type WebhookTargetConfig struct {
	URL           string `json:"url"`
	SigningSecret string `json:"-"` // env only, never persisted to config.json
	TimeoutMS     int    `json:"timeout_ms,omitempty"`
}

// DiscordTargetConfig sends a delivery via a Discord incoming webhook.
type DiscordTargetConfig struct {
	WebhookURL string `json:"webhook_url"`
}

// TelegramTargetConfig sends a delivery via the Telegram Bot API.
type TelegramTargetConfig struct {
	BotToken string `json:"-"` // env only
	ChatID   string `json:"chat_id"`
}

// DefaultDeliveryConfig returns an empty delivery config (no targets configured).
func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{MaxRetries: 3}
}
