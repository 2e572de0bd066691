package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Member is one user of the bot, keyed by Telegram username. Records are
// short-lived: the collection carries a TTL index and a daily purge, so a
// member who did not share a location today drops out of matching.
type Member struct {
	MongoID      primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	SelectedOrg  string             `bson:"selectedOrg"`
	TravelRadius int                `bson:"travelRadius"`
	Location     *Location          `bson:"location,omitempty"`
	TelegramUser TelegramUser       `bson:"telegramUser"`
	CreatedDttm  time.Time          `bson:"createdDttm"`
}

// Complete reports whether the member has finished the setup conversation.
// Only complete members take part in proximity matching.
func (m Member) Complete() bool {
	return m.SelectedOrg != "" && m.TravelRadius > 0 && m.Location != nil
}

type TelegramUser struct {
	ID           int64  `json:"id" bson:"id"`
	FirstName    string `json:"first_name" bson:"firstName"`
	LastName     string `json:"last_name,omitempty" bson:"lastName,omitempty"`
	UserName     string `json:"username" bson:"username"`
	LanguageCode string `json:"language_code" bson:"languageCode,omitempty"`
	IsBot        bool   `json:"is_bot" bson:"isBot,omitempty"`
}

func (t *TelegramUser) Name() string {
	switch {
	case t.UserName != "":
		return t.UserName
	case t.FirstName != "" && t.LastName != "":
		return t.FirstName + " " + t.LastName
	case t.FirstName != "":
		return t.FirstName
	case t.LastName != "":
		return t.LastName
	default:
		return strconv.FormatInt(t.ID, 10)
	}
}
