package telegram

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/rs/zerolog/log"
	config "github.com/tigmir/wemeet-bot/configuration"
	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/models"
)

const (
	workers            = 4
	timeout        int = 60
	updateOffset       = 0
	maxConnections     = 10
	updatesBuffer      = 1000
	commandsBuffer     = 300
)

type TgApp interface {
	MessageHandler()
}

// botAPI is the part of the Bot API client the update path goes through.
type botAPI interface {
	Send(message tgbotapi.Chattable) (tgbotapi.Message, error)
	AnswerCallbackQuery(config tgbotapi.CallbackConfig) (tgbotapi.APIResponse, error)
	LeaveChat(config tgbotapi.ChatConfig) (tgbotapi.APIResponse, error)
}

type tgConfig struct {
	BotTelegram *tgbotapi.BotAPI
	api         botAPI
	dispatcher  *mediator.Dispatcher
	BotName     string
	updates     chan tgbotapi.Update
	commands    chan Command
}

func Initialize(dispatcher *mediator.Dispatcher) (TgApp, error) {
	botTelegram, err := tgbotapi.NewBotAPI(config.TelegramToken())
	if err != nil {
		log.Printf("\ntgbotapi problem " + err.Error())
		return nil, err
	}
	log.Printf("Init telegram bot %s", botTelegram.Self.UserName)
	tgApp := &tgConfig{
		BotTelegram: botTelegram,
		api:         botTelegram,
		dispatcher:  dispatcher,
		BotName:     botTelegram.Self.UserName,
		updates:     make(chan tgbotapi.Update, updatesBuffer),
		commands:    make(chan Command, commandsBuffer),
	}
	config.SetTelegramAdminBot(tgApp.BotName)
	if err := dispatcher.Register(
		Listener{
			tgApp: tgApp,
		}, models.TelegramEvents...); err != nil {
		log.Info().Err(err).Send()
	}
	for i := 0; i < workers; i++ {
		go tgApp.commandsHandler()
	}
	return tgApp, nil
}

// Response queues an update that arrived through the webhook endpoint.
func (t *tgConfig) Response(update tgbotapi.Update) {
	t.updates <- update
}

func (t *tgConfig) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	return t.updates
}

func (t *tgConfig) CheckCommand(msg string, chatId int64, commands ...string) bool {
	result := false
	for _, command := range commands {
		if msg == command || msg == fmt.Sprintf("%s@%s", command, t.BotName) {
			result = true
			break
		}
	}
	if chatId != 0 {
		if !(chatId == config.TelegramAdminId() || chatId == config.TelegramReportChatId()) {
			result = false
		}
	}
	return result
}

func (t *tgConfig) Send(message tgbotapi.Chattable) (tgbotapi.Message, error) {
	return t.api.Send(message)
}

func (t *tgConfig) SendMessage(event models.TelegramSendMessageEvent) (tgbotapi.Message, error) {
	chatId := config.TelegramAdminId()
	if event.ChatId != 0 {
		chatId = event.ChatId
	}
	message := tgbotapi.NewMessage(chatId, event.Message)
	if len(event.Buttons) > 0 {
		message.ReplyMarkup = replyKeyboard(event.Buttons)
	} else if event.RemoveKeyboard {
		message.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	messageResult, err := t.Send(message)
	t.dispatcher.Dispatch(models.LogToFile, models.FileLoggerEvent{
		Src: models.FileLogMessenger,
		Data: fmt.Sprintf("Tg message to: %v, text: %s, buttons: %v",
			chatId,
			event.Message,
			event.Buttons,
		),
	})
	if err != nil {
		log.Info().Err(err).Msg("send message error")
	}
	return messageResult, err
}

func (t *tgConfig) SendRadiusSelector(event models.TelegramSendRadiusSelectorEvent) (tgbotapi.Message, error) {
	text := fmt.Sprintf("%s is your currently selected organization. "+
		"Please choose how far you are willing to travel:", event.Org)
	message := tgbotapi.NewMessage(event.ChatId, text)
	message.ReplyMarkup = radiusKeyboard(event.Options)
	messageResult, err := t.Send(message)
	if err != nil {
		log.Error().Err(err).Msg("radius selector sending error")
	}
	return messageResult, err
}

func (t *tgConfig) RequestLocation(event models.TelegramRequestLocationEvent) (tgbotapi.Message, error) {
	message := tgbotapi.NewMessage(event.ChatId, event.Message)
	message.ReplyMarkup = locationKeyboard()
	messageResult, err := t.Send(message)
	if err != nil {
		log.Error().Err(err).Msg("location request sending error")
	}
	return messageResult, err
}

func (t *tgConfig) EditMessage(event models.TelegramEditMessageEvent) error {
	edit := tgbotapi.NewEditMessageText(event.ChatId, event.MessageId, event.Message)
	if _, err := t.Send(edit); err != nil {
		log.Error().Err(err).Msg("message edit error")
		return err
	}
	if event.CallbackId != "" {
		if _, err := t.api.AnswerCallbackQuery(tgbotapi.NewCallback(event.CallbackId, "")); err != nil {
			log.Info().Err(err).Msg("answer callback error")
			return err
		}
	}
	return nil
}

func (t *tgConfig) ErrorHandler(messageResult tgbotapi.Message, err error) {
	if err == nil {
		return
	}
	log.Info().Err(err).Interface("messageResult", messageResult).Msg("tg Message ErrorHandler")
	t.dispatcher.Dispatch(models.LogToFile, models.FileLoggerEvent{
		Src:  models.FileLogErrors,
		Data: fmt.Sprintf("Tg send error: %s", err.Error()),
	})
}

func (t *tgConfig) sendTyping(chatId int64) {
	if _, err := t.Send(tgbotapi.NewChatAction(chatId, tgbotapi.ChatTyping)); err != nil {
		log.Debug().Err(err).Msg("chat action error")
	}
}

func (t *tgConfig) MessageHandler() {
	log.Printf("\nStart spy tg messages")

	if t.BotTelegram == nil {
		log.Printf("\nBotTelegram pointer is nil")
		return
	}

	updates := t.GetUpdatesChannel()
	if config.TelegramCallBackUrl() != "" {
		log.Debug().Msgf("Set telegram webhook to %s", config.TelegramCallBackUrl())
		urlObject, err := url.Parse(config.TelegramCallBackUrl())
		if err != nil {
			log.Error().Err(err).Msg("telegram webhook url parse error")
			return
		}
		_, err = t.BotTelegram.SetWebhook(tgbotapi.WebhookConfig{
			URL:            urlObject,
			MaxConnections: maxConnections,
		})
		if err != nil {
			log.Info().Err(err).Msg("telegram webhook install error")
			return
		}
		webhookInfo, err := t.BotTelegram.GetWebhookInfo()
		if err != nil {
			log.Info().Err(err).Msg("telegram webhook info error")
		}
		if webhookInfo.LastErrorDate != 0 {
			log.Printf("Telegram callback failed: %s", webhookInfo.LastErrorMessage)
		}
	} else {
		_, err := t.BotTelegram.RemoveWebhook()
		if err != nil {
			log.Info().Err(err).Msg("telegram Remove Webhook error")
		}
		log.Debug().Msgf("Set telegram updates with timeout %v", timeout)
		u := tgbotapi.NewUpdate(updateOffset)
		u.Timeout = timeout
		updates, err = t.BotTelegram.GetUpdatesChan(u)
		if err != nil {
			log.Error().Err(err).Msg("telegram updates channel error")
			return
		}
	}

	if config.TelegramReportChatId() != 0 {
		msg := tgbotapi.NewMessage(config.TelegramReportChatId(), "Start "+config.AppName()+" v"+config.Version)
		t.Send(msg)
	}

	for update := range updates {
		t.handleUpdate(update)
	}
}

func (t *tgConfig) handleUpdate(update tgbotapi.Update) {
	log.Debug().Interface("TG update", update).Send()

	if update.CallbackQuery != nil {
		query := update.CallbackQuery
		if query.Message == nil {
			return
		}
		if stale(query.Message, config.MaxUpdateAge(), time.Now()) {
			log.Printf("Dropped %v (age %v)", update.UpdateID, messageAge(query.Message, time.Now()))
			return
		}
		chatId := query.Message.Chat.ID
		t.sendTyping(chatId)
		log.Info().Err(t.dispatcher.Dispatch(models.MeetupRadiusSelected, models.MeetupRadiusSelectedEvent{
			ChatId:     chatId,
			MessageId:  query.Message.MessageID,
			CallbackId: query.ID,
			User:       fromUser(query.From),
			Data:       query.Data,
		})).Send()
		return
	}

	if update.Message == nil || update.Message.From == nil {
		return
	}
	message := update.Message
	if message.Chat.ID != config.TelegramReportChatId() &&
		int64(message.From.ID) != message.Chat.ID &&
		config.TelegramExitOtherGroups() {
		t.api.LeaveChat(tgbotapi.ChatConfig{ChatID: message.Chat.ID})
		return
	}
	if stale(message, config.MaxUpdateAge(), time.Now()) {
		log.Printf("Dropped %v (age %v)", update.UpdateID, messageAge(message, time.Now()))
		return
	}
	chatId := message.Chat.ID
	t.sendTyping(chatId)

	user := fromUser(message.From)
	t.dispatcher.Dispatch(models.LogToFile, models.FileLoggerEvent{
		Src: models.FileLogMessenger,
		Data: fmt.Sprintf("Tg message from: %v %s, text %s",
			user.ID,
			user.Name(),
			message.Text,
		),
	})

	if message.Location != nil {
		log.Info().Err(t.dispatcher.Dispatch(models.MeetupLocationUpdate, models.MeetupLocationUpdateEvent{
			ChatId: chatId,
			User:   user,
			Location: models.Location{
				Latitude:  message.Location.Latitude,
				Longitude: message.Location.Longitude,
			},
		})).Send()
		return
	}

	if strings.HasPrefix(message.Text, "/") {
		parsedCommands, commandValue := splitCommand(message.Text, " ")
		t.commands <- Command{
			Name:   parsedCommands[0],
			Parsed: parsedCommands,
			Params: commandValue,
			Data:   update,
		}
		return
	}

	// Any other text is treated as an organization name.
	log.Info().Err(t.dispatcher.Dispatch(models.MeetupJoinOrg, models.MeetupJoinOrgEvent{
		ChatId: chatId,
		User:   user,
		Text:   message.Text,
	})).Send()
}

func fromUser(user *tgbotapi.User) models.TelegramUser {
	if user == nil {
		return models.TelegramUser{}
	}
	return models.TelegramUser{
		ID:           int64(user.ID),
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		UserName:     user.UserName,
		LanguageCode: user.LanguageCode,
		IsBot:        user.IsBot,
	}
}

// messageAge reports how long ago the message was sent, counting edits from
// the edit timestamp.
func messageAge(message *tgbotapi.Message, now time.Time) time.Duration {
	eventTime := time.Unix(int64(message.Date), 0)
	if message.EditDate != 0 {
		eventTime = time.Unix(int64(message.EditDate), 0)
	}
	return now.Sub(eventTime)
}

// stale drops updates older than maxAge. Telegram redelivers a webhook body
// when the handler fails, so a crash must not replay an old conversation
// forever.
func stale(message *tgbotapi.Message, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return messageAge(message, now) > maxAge
}

func splitCommand(command string, separate string) ([]string, string) {
	if command == "" {
		return []string{}, ""
	}
	if separate == "" {
		separate = " "
	}
	result := strings.Split(command, separate)
	return result, strings.Replace(command, result[0]+separate, "", -1)
}
