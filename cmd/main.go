package main

import (
	"os"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tigmir/wemeet-bot/internal/database"
	"github.com/tigmir/wemeet-bot/internal/fileLogger"
	"github.com/tigmir/wemeet-bot/internal/mediator"
	"github.com/tigmir/wemeet-bot/internal/meetup"
	messenger "github.com/tigmir/wemeet-bot/internal/messengers"
	"github.com/tigmir/wemeet-bot/internal/models"
	"github.com/tigmir/wemeet-bot/internal/repository"
	routing "github.com/tigmir/wemeet-bot/internal/webServer"
)

type SystemListener struct{}

var onExit chan int

func main() {
	var err error
	onExit = make(chan int)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	dispatcher := mediator.NewDispatcher()
	if err := dispatcher.Register(
		SystemListener{},
		models.AppExit,
		models.SetLogDebugMode,
		models.SetLogInfoMode); err != nil {
		log.Info().Err(err).Send()
	}

	loggerClient := fileLogger.Provide(dispatcher)
	for filename, logName := range models.LogFiles {
		err = loggerClient.AddSource(filename, logName)
		if err != nil {
			log.Info().Err(err).Msgf("Error open log file %s", filename)
		}
	}
	time.Sleep(time.Second)
	defer loggerClient.CloseAll()

	mongoDbApp, err := database.ProvideMongo(dispatcher)
	if err != nil {
		log.Fatal().Err(err).Send()
	}

	memberRep := repository.NewMemberRepo(mongoDbApp)
	orgRep := repository.NewOrganizationRepo(mongoDbApp)
	meetupApp := meetup.Provide(memberRep, orgRep, dispatcher)

	if err := meetupApp.SyncOrganizations(); err != nil {
		log.Error().Err(err).Msg("organizations sync error")
	}

	if err := messenger.Initialize(dispatcher); err != nil {
		log.Fatal().Err(err).Msg("telegram bot init error")
	}
	go routing.NewRouter(dispatcher)

	log.Info().Msg("Prepare cron jobs")
	cronJobs := cron.New()
	// Daily at 00:05 UTC: drop members who did not check in today
	err = cronJobs.AddFunc("0 5 0 * * *", func() {
		log.Debug().Msg("========= START CRON ========= TASK PurgeStaleMembers")
		count, err := meetupApp.PurgeStaleMembers()
		log.Info().Err(err).Int64("purged", count).Send()
	})
	if err != nil {
		log.Err(err).Msg("cron err")
	}
	// Every 6 hours: re-align organizations with the authorized list
	err = cronJobs.AddFunc("0 0 */6 * * *", func() {
		log.Debug().Msg("========= START CRON ========= TASK SyncOrganizations")
		log.Info().Err(meetupApp.SyncOrganizations()).Send()
	})
	if err != nil {
		log.Err(err).Msg("cron err")
	}
	go cronJobs.Start()

	for code := range onExit {
		os.Exit(code)
	}
}

func (u SystemListener) Listen(eventName models.EventName, _ interface{}) {
	switch eventName {
	case models.AppExit:
		onExit <- 0
	case models.SetLogDebugMode:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case models.SetLogInfoMode:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
