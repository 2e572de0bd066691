package telegram

import (
	"encoding/json"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
	"github.com/tigmir/wemeet-bot/internal/models"
)

type Listener struct {
	tgApp *tgConfig
}

func (u Listener) Listen(_ models.EventName, event interface{}) {
	switch event := event.(type) {
	case models.TelegramResponse:
		// Handle data from http callback
		var update tgbotapi.Update
		err := json.Unmarshal(event.Data, &update)
		if err != nil {
			log.Info().Err(err).Str("traceId", event.TraceId).Msg("Telegram Response err")
		} else {
			u.tgApp.Response(update)
		}
	case models.TelegramSendMessageEvent:
		u.tgApp.ErrorHandler(u.tgApp.SendMessage(event))
	case models.TelegramSendRadiusSelectorEvent:
		u.tgApp.ErrorHandler(u.tgApp.SendRadiusSelector(event))
	case models.TelegramRequestLocationEvent:
		u.tgApp.ErrorHandler(u.tgApp.RequestLocation(event))
	case models.TelegramEditMessageEvent:
		if err := u.tgApp.EditMessage(event); err != nil {
			log.Info().Err(err).Msg("edit message event error")
		}
	default:
		log.Printf("registered an invalid telegram event: %T\n", event)
	}
}
