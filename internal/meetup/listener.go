package meetup

import (
	"github.com/rs/zerolog/log"
	"github.com/tigmir/wemeet-bot/internal/models"
)

type Listener struct {
	Client *Client
}

func (u Listener) Listen(_ models.EventName, event interface{}) {
	switch event := event.(type) {
	case models.MeetupUserStartEvent:
		u.Client.UserStart(event)
	case models.MeetupUserHelpEvent:
		u.Client.Help(event)
	case models.MeetupJoinOrgEvent:
		u.Client.JoinOrg(event)
	case models.MeetupRadiusSelectedEvent:
		u.Client.RadiusSelected(event)
	case models.MeetupLocationUpdateEvent:
		u.Client.LocationUpdate(event)
	default:
		log.Printf("registered an invalid meetup event: %T\n", event)
	}
}
