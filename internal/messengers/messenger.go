package messenger

import (
	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/messengers/telegram"
)

// Initialize brings up the Telegram client and starts its update loop. An
// error means the bot token is unusable and the service must not come up,
// otherwise the webhook listener would never be registered and every
// delivery would be accepted and dropped.
func Initialize(dispatcher *mediator.Dispatcher) error {
	telegramApp, err := telegram.Initialize(dispatcher)
	if err != nil {
		return err
	}
	go telegramApp.MessageHandler()
	return nil
}
