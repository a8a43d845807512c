package repository

import (
	"context"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserDirectory reads the users collection owned by the auth service.
type MongoUserDirectory struct {
	coll *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{coll: db.Collection("users")}
}

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	FullName   string             `bson:"full_name"`
	Email      string             `bson:"email"`
	ProfilePic string             `bson:"profile_pic,omitempty"`
}

func (r *MongoUserDirectory) ListUsersExcept(ctx context.Context, userID string) ([]domain.User, error) {
	ids, err := objectIDs(userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "full_name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": ids[0]}}, opts)
	if err != nil {
		return nil, domain.Storage("list users", err)
	}
	defer cur.Close(ctx)

	out := []domain.User{}
	for cur.Next(ctx) {
		var d userDoc
		if err := cur.Decode(&d); err != nil {
			return nil, domain.Storage("decode user", err)
		}
		out = append(out, domain.User{
			ID:         d.ID.Hex(),
			FullName:   d.FullName,
			Email:      d.Email,
			ProfilePic: d.ProfilePic,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, domain.Storage("iterate users", err)
	}
	return out, nil
}
