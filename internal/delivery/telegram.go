package delivery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/serialagent/gateway/internal/config"
)

// sendTelegram posts content to a chat via the Telegram Bot API, adapted from
// internal/channels/telegram's commands.go `tu.Message(tu.ID(chatID),
// text)` / `bot.SendMessage` send path — a delivery target has no
// long-polling/webhook receive loop, only the outbound call.
func sendTelegram(ctx context.Context, cfg config.TelegramTargetConfig, content string) error {
	bot, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram delivery: create bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram delivery: invalid chat id %q: %w", cfg.ChatID, err)
	}

	const maxLen = 4096
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			chunk = chunk[:maxLen]
		}
		content = content[len(chunk):]
		msg := tu.Message(tu.ID(chatID), chunk)
		if _, err := bot.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("telegram delivery: send message: %w", err)
		}
	}
	return nil
}
