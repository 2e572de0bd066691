package telegram

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
	config "github.com/tigmir/wemeet-bot/configuration"
	"github.com/tigmir/wemeet-bot/internal/models"
)

func (t *tgConfig) commandsHandler() {
	log.Info().Msg("start commandsHandler")
	for command := range t.commands {
		update := command.Data
		chatId := update.Message.Chat.ID
		log.Info().Msgf("Handle command %s", command.Name)
		switch {
		case t.CheckCommand(command.Name, 0, "/start"):
			log.Info().Err(t.dispatcher.Dispatch(models.MeetupUserStart, models.MeetupUserStartEvent{
				ChatId: chatId,
				User:   fromUser(update.Message.From),
			})).Send()

		case t.CheckCommand(command.Name, 0, "/help"):
			log.Info().Err(t.dispatcher.Dispatch(models.MeetupUserHelp, models.MeetupUserHelpEvent{
				ChatId: chatId,
			})).Send()

		case t.CheckCommand(command.Name, 0, "/ver", "/version"):
			msg := tgbotapi.NewMessage(chatId, config.Version)
			t.Send(msg)

		case t.CheckCommand(command.Name, 0, "/this"):
			statistic := fmt.Sprintf("Current chat: %v \nFrom %v",
				update.Message.Chat.ID,
				update.Message.From.ID)
			msg := tgbotapi.NewMessage(chatId, statistic)
			t.Send(msg)

		case t.CheckCommand(command.Name, chatId, "/info"):
			appStat, _ := json.MarshalIndent(config.GetMemUsage(), "", "    ")
			t.Send(tgbotapi.NewMessage(chatId, string(appStat)))

		default:
			// An unknown slash command gets the same treatment as plain
			// text: maybe the org name starts with a slash, maybe not, the
			// meetup engine re-prompts either way.
			log.Info().Err(t.dispatcher.Dispatch(models.MeetupJoinOrg, models.MeetupJoinOrgEvent{
				ChatId: chatId,
				User:   fromUser(update.Message.From),
				Text:   update.Message.Text,
			})).Send()
		}
	}
}
