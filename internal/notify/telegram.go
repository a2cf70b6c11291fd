// internal/notify/telegram.go
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxTelegramMessage = 4096

// TelegramHandler returns a Handler delivering messages to a fixed chat via
// the bot API. Registered only when credentials are configured.
func TelegramHandler(token string, chatID int64) (Handler, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return func(_, message string) error {
		for _, part := range splitMessage(message) {
			if _, err := bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
				return fmt.Errorf("send telegram message: %w", err)
			}
		}
		return nil
	}, nil
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
