package repository

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tigmir/wemeet-bot/internal/database"
	"github.com/tigmir/wemeet-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const membersCollectionName = "members"

// memberTTLSeconds backs the retention promise from /help: location data is
// kept for 24 hours at most. The daily cron purge enforces the stricter
// "same calendar day" rule on top of it.
const memberTTLSeconds = 24 * 60 * 60

type MemberRepository interface {
	Upsert(models.Member) (models.Member, error)
	GetByUsername(string) (models.Member, error)
	GetByUsernames([]string) ([]models.Member, error)
	GetAll() ([]models.Member, error)
	RemoveCreatedBefore(time.Time) (int64, error)
	Count() (int64, error)
}

type memberRepo struct {
	dbApp      database.MongoClientApplication
	collection *mongo.Collection
}

func NewMemberRepo(db database.MongoClientApplication) MemberRepository {
	collection := db.GetCollection(membersCollectionName)
	db.CreateUniqueIndex(collection, "username")
	db.CreateIndexWithTimeout(collection, "createdDttm", memberTTLSeconds)
	return &memberRepo{
		dbApp:      db,
		collection: collection,
	}
}

func (u *memberRepo) Upsert(member models.Member) (models.Member, error) {
	member.CreatedDttm = time.Now().UTC()
	_, err := u.collection.UpdateOne(
		u.dbApp.GetContext(),
		bson.M{"username": member.Username},
		bson.D{
			{Key: "$set", Value: bson.M{
				"username":     member.Username,
				"selectedOrg":  member.SelectedOrg,
				"travelRadius": member.TravelRadius,
				"location":     member.Location,
				"telegramUser": member.TelegramUser,
				"createdDttm":  member.CreatedDttm,
			}},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		log.Error().AnErr("Upsert member error", err).Str("username", member.Username).Send()
		return member, err
	}
	return member, nil
}

func (u *memberRepo) GetByUsername(username string) (models.Member, error) {
	member := models.Member{}
	err := u.collection.FindOne(u.dbApp.GetContext(), bson.M{"username": username}).Decode(&member)
	if err != nil {
		return member, err
	}
	return member, nil
}

func (u *memberRepo) GetByUsernames(usernames []string) ([]models.Member, error) {
	return u.getAllByFilter(bson.M{"username": bson.M{"$in": usernames}})
}

func (u *memberRepo) GetAll() ([]models.Member, error) {
	return u.getAllByFilter(bson.D{})
}

func (u *memberRepo) getAllByFilter(filter interface{}) ([]models.Member, error) {
	member := models.Member{}
	var members []models.Member
	cursor, err := u.collection.Find(u.dbApp.GetContext(), filter)
	if err != nil {
		return members, err
	}
	defer cursor.Close(u.dbApp.GetContext())
	for cursor.Next(u.dbApp.GetContext()) {
		err := cursor.Decode(&member)
		if err != nil {
			log.Error().AnErr("member read error", err).Send()
			continue
		}
		members = append(members, member)
	}
	if err := cursor.Err(); err != nil {
		return members, err
	}
	return members, nil
}

func (u *memberRepo) RemoveCreatedBefore(cutoff time.Time) (int64, error) {
	result, err := u.collection.DeleteMany(
		u.dbApp.GetContext(),
		bson.M{"createdDttm": bson.M{"$lt": cutoff}})
	if err != nil {
		log.Error().AnErr("Remove stale members error", err).Send()
		return 0, err
	}
	return result.DeletedCount, nil
}

func (u *memberRepo) Count() (int64, error) {
	return u.collection.CountDocuments(u.dbApp.GetContext(), bson.D{})
}
