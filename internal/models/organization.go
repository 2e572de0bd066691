package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Organization is a roster of usernames under an upper-cased code. Only
// codes from the authorized list may exist in the store.
type Organization struct {
	MongoID primitive.ObjectID `bson:"_id,omitempty"`
	Code    string             `bson:"code"`
	Members []string           `bson:"members"`
}

func (o Organization) HasMember(username string) bool {
	for _, member := range o.Members {
		if member == username {
			return true
		}
	}
	return false
}
