package repository

import (
	"github.com/rs/zerolog/log"
	"github.com/tigmir/wemeet-bot/internal/database"
	"github.com/tigmir/wemeet-bot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const organizationsCollectionName = "organizations"

type OrganizationRepository interface {
	Upsert(string, []string) (models.Organization, error)
	GetByCode(string) (models.Organization, error)
	GetAll() ([]models.Organization, error)
	RemoveNotIn([]string) (int64, error)
	Count() (int64, error)
}

type organizationRepo struct {
	dbApp      database.MongoClientApplication
	collection *mongo.Collection
}

func NewOrganizationRepo(db database.MongoClientApplication) OrganizationRepository {
	collection := db.GetCollection(organizationsCollectionName)
	db.CreateUniqueIndex(collection, "code")
	return &organizationRepo{
		dbApp:      db,
		collection: collection,
	}
}

func (u *organizationRepo) Upsert(code string, members []string) (models.Organization, error) {
	org := models.Organization{
		Code:    code,
		Members: members,
	}
	if org.Members == nil {
		org.Members = []string{}
	}
	_, err := u.collection.UpdateOne(
		u.dbApp.GetContext(),
		bson.M{"code": code},
		bson.D{
			{Key: "$set", Value: bson.M{
				"code":    org.Code,
				"members": org.Members,
			}},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		log.Error().AnErr("Upsert organization error", err).Str("code", code).Send()
		return org, err
	}
	return org, nil
}

func (u *organizationRepo) GetByCode(code string) (models.Organization, error) {
	org := models.Organization{}
	err := u.collection.FindOne(u.dbApp.GetContext(), bson.M{"code": code}).Decode(&org)
	if err != nil {
		return org, err
	}
	return org, nil
}

func (u *organizationRepo) GetAll() ([]models.Organization, error) {
	org := models.Organization{}
	var orgs []models.Organization
	cursor, err := u.collection.Find(u.dbApp.GetContext(), bson.D{})
	if err != nil {
		return orgs, err
	}
	defer cursor.Close(u.dbApp.GetContext())
	for cursor.Next(u.dbApp.GetContext()) {
		err := cursor.Decode(&org)
		if err != nil {
			log.Error().AnErr("organization read error", err).Send()
			continue
		}
		orgs = append(orgs, org)
	}
	if err := cursor.Err(); err != nil {
		return orgs, err
	}
	return orgs, nil
}

// RemoveNotIn drops every organization whose code is not on the authorized
// list. Runs from the sync cron job.
func (u *organizationRepo) RemoveNotIn(codes []string) (int64, error) {
	result, err := u.collection.DeleteMany(
		u.dbApp.GetContext(),
		bson.M{"code": bson.M{"$nin": codes}})
	if err != nil {
		log.Error().AnErr("Remove organizations error", err).Send()
		return 0, err
	}
	return result.DeletedCount, nil
}

func (u *organizationRepo) Count() (int64, error) {
	return u.collection.CountDocuments(u.dbApp.GetContext(), bson.D{})
}
