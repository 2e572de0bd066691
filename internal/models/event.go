package models

const FileLogFatal = "fatal"
const FileLogErrors = "errors"
const FileLogWebHooks = "webHooks"
const FileLogMessenger = "messenger"
const FileLogMeetup = "meetup"

var LogFiles = map[string]string{
	"fatal.txt":     FileLogFatal,
	"errors.txt":    FileLogErrors,
	"webHooks.txt":  FileLogWebHooks,
	"messenger.txt": FileLogMessenger,
	"meetup.txt":    FileLogMeetup,
}

type EventName string

const TelegramSendMessage EventName = "messenger.telegram.message.send"
const TelegramSendRadiusSelector EventName = "messenger.telegram.radius.send"
const TelegramRequestLocation EventName = "messenger.telegram.location.request"
const TelegramEditMessage EventName = "messenger.telegram.message.edit"
const TelegramWebHook EventName = "messenger.telegram.webhook"

var TelegramEvents = []EventName{
	TelegramSendMessage,
	TelegramSendRadiusSelector,
	TelegramRequestLocation,
	TelegramEditMessage,
	TelegramWebHook,
}

const MeetupUserStart EventName = "meetup.user.start"
const MeetupUserHelp EventName = "meetup.user.help"
const MeetupJoinOrg EventName = "meetup.org.join"
const MeetupRadiusSelected EventName = "meetup.radius.selected"
const MeetupLocationUpdate EventName = "meetup.location.update"

var MeetupEvents = []EventName{
	MeetupUserStart,
	MeetupUserHelp,
	MeetupJoinOrg,
	MeetupRadiusSelected,
	MeetupLocationUpdate,
}

const SetLogDebugMode EventName = "log.mode.debug"
const SetLogInfoMode EventName = "log.mode.info"

const AppExit EventName = "app.exit"

const LogToFile EventName = "fileLogger.log.data"

var FileLoggerEvents = []EventName{
	LogToFile,
}

type Listener interface {
	Listen(eventName EventName, event interface{})
}

type Job struct {
	EventName EventName
	EventType interface{}
}

// TelegramResponse carries a raw webhook body from the web server to the
// telegram listener. TraceId ties the file log lines of one delivery together.
type TelegramResponse struct {
	Data    []byte
	TraceId string
}

type TelegramSendMessageEvent struct {
	ChatId         int64
	Message        string
	Buttons        []string
	RemoveKeyboard bool
}

type TelegramSendRadiusSelectorEvent struct {
	ChatId  int64
	Org     string
	Options []int
}

type TelegramRequestLocationEvent struct {
	ChatId  int64
	Message string
}

// TelegramEditMessageEvent replaces an already sent message (the radius
// selector) and answers the originating callback query if CallbackId is set.
type TelegramEditMessageEvent struct {
	ChatId     int64
	MessageId  int
	Message    string
	CallbackId string
}

type MeetupUserStartEvent struct {
	ChatId int64
	User   TelegramUser
}

type MeetupUserHelpEvent struct {
	ChatId int64
}

type MeetupJoinOrgEvent struct {
	ChatId int64
	User   TelegramUser
	Text   string
}

type MeetupRadiusSelectedEvent struct {
	ChatId     int64
	MessageId  int
	CallbackId string
	User       TelegramUser
	Data       string
}

type MeetupLocationUpdateEvent struct {
	ChatId   int64
	User     TelegramUser
	Location Location
}

type FileLoggerEvent struct {
	Src         string
	Data        string
	WithoutTime bool
	ToDebug     bool
}
