package routing

import (
	"fmt"
	"net/http"

	"github.com/buaazp/fasthttprouter"
	"github.com/rs/zerolog/log"
	uuid "github.com/satori/go.uuid"
	config "github.com/tigmir/wemeet-bot/configuration"
	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/models"
	"github.com/valyala/fasthttp"
)

var (
	strContentType     = []byte("Content-Type")
	strApplicationJSON = []byte("application/json")
)

type routerData struct {
	dispatcher *mediator.Dispatcher
}

func NewRouter(dispatcher *mediator.Dispatcher) error {
	routerDataConf := &routerData{dispatcher: dispatcher}
	router := fasthttprouter.New()
	router.GET(config.WebServerPrefix()+"/", IndexHandler)
	router.GET(config.WebServerPrefix()+"/version", VersionHandler)
	router.GET(config.WebServerPrefix()+"/status", StatusHandler)
	router.POST(config.WebServerPrefix()+config.TelegramCallBackUri(), routerDataConf.telegram)
	log.Info().Msg("Start web server by " + config.WebServerAddress())
	return fasthttp.ListenAndServe(config.WebServerAddress(), CORS(router.Handler))
}

func IndexHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf8")
	ctx.SetStatusCode(403)
}

func VersionHandler(ctx *fasthttp.RequestCtx) {
	writeJsonResponse(ctx, http.StatusOK, map[string]string{"version": config.Version})
}

func StatusHandler(ctx *fasthttp.RequestCtx) {
	writeJsonResponse(ctx, http.StatusOK, config.GetMemUsage())
}

// telegram accepts the Bot API webhook callback. The response is always 200:
// Telegram redelivers on any other status and a malformed update must not
// turn into a retry storm.
func (r *routerData) telegram(ctx *fasthttp.RequestCtx) {
	traceId := uuid.NewV4().String()
	r.dispatcher.Dispatch(models.LogToFile, models.FileLoggerEvent{
		Src:  models.FileLogWebHooks,
		Data: fmt.Sprintf("[%s] %s", traceId, string(ctx.PostBody())),
	})
	log.Debug().Str("traceId", traceId).Str("tg event", string(ctx.PostBody())).Send()
	log.Info().Err(
		r.dispatcher.Dispatch(
			models.TelegramWebHook,
			models.TelegramResponse{
				Data:    append([]byte(nil), ctx.PostBody()...),
				TraceId: traceId,
			}),
	).Send()
	writeJsonResponse(ctx, http.StatusOK, getResponse("", 0, true))
}
