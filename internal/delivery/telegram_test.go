package delivery

import (
	"context"
	"strings"
	"testing"

	"github.com/serialagent/gateway/internal/config"
)

// TestSendTelegramRejectsNonNumericChatID exercises the chat-id parse guard,
// which runs before any network call, so it is safe to test without a live
// bot token.
func TestSendTelegramRejectsNonNumericChatID(t *testing.T) {
	cfg := config.TelegramTargetConfig{
		BotToken: "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11",
		ChatID:   "not-a-chat-id",
	}
	err := sendTelegram(context.Background(), cfg, "hello")
	if err == nil {
		t.Fatal("expected an error for a non-numeric chat id")
	}
	if !strings.Contains(err.Error(), "invalid chat id") {
		t.Fatalf("err = %v, want it to mention invalid chat id", err)
	}
}
