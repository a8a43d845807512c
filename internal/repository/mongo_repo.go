package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/dm-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepository struct {
	msgColl *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{msgColl: db.Collection("messages")}
}

// EnsureIndexes creates the indexes the conversation and unread queries rely on.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.msgColl.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

type messageDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	SenderID   primitive.ObjectID `bson:"sender_id"`
	ReceiverID primitive.ObjectID `bson:"receiver_id"`
	Text       string             `bson:"text,omitempty"`
	FileType   domain.Kind        `bson:"file_type"`
	Attachment *domain.Attachment `bson:"attachment,omitempty"`
	Read       bool               `bson:"read"`
	CreatedAt  time.Time          `bson:"created_at"`
}

func (d *messageDoc) toDomain() *domain.Message {
	return &domain.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.SenderID.Hex(),
		ReceiverID: d.ReceiverID.Hex(),
		Text:       d.Text,
		Kind:       d.FileType,
		Attachment: d.Attachment,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func objectIDs(ids ...string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil || !domain.ValidID(id) {
			return nil, domain.Validationf("invalid user id %q", id)
		}
		out = append(out, oid)
	}
	return out, nil
}

func pairFilter(a, b primitive.ObjectID) bson.M {
	return bson.M{"$or": []bson.M{
		{"sender_id": a, "receiver_id": b},
		{"sender_id": b, "receiver_id": a},
	}}
}

func (r *MongoRepository) Append(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	ids, err := objectIDs(m.SenderID, m.ReceiverID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	doc := messageDoc{
		ID:         primitive.NewObjectID(),
		SenderID:   ids[0],
		ReceiverID: ids[1],
		Text:       m.Text,
		FileType:   m.Kind,
		Attachment: m.Attachment,
		Read:       false,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.msgColl.InsertOne(ctx, doc); err != nil {
		return nil, domain.Storage("insert message", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoRepository) ConversationHistory(ctx context.Context, a, b string) ([]*domain.Message, error) {
	ids, err := objectIDs(a, b)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.msgColl.Find(ctx, pairFilter(ids[0], ids[1]), opts)
	if err != nil {
		return nil, domain.Storage("find conversation", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Message{}
	for cur.Next(ctx) {
		var d messageDoc
		if err := cur.Decode(&d); err != nil {
			return nil, domain.Storage("decode message", err)
		}
		out = append(out, d.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, domain.Storage("iterate conversation", err)
	}
	return out, nil
}

func (r *MongoRepository) UnreadCountFrom(ctx context.Context, senderID, receiverID string) (int64, error) {
	ids, err := objectIDs(senderID, receiverID)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	n, err := r.msgColl.CountDocuments(ctx, bson.M{"sender_id": ids[0], "receiver_id": ids[1], "read": false})
	if err != nil {
		return 0, domain.Storage("count unread", err)
	}
	return n, nil
}

func (r *MongoRepository) LastMessageBetween(ctx context.Context, a, b string) (*domain.Message, error) {
	ids, err := objectIDs(a, b)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	var d messageDoc
	if err := r.msgColl.FindOne(ctx, pairFilter(ids[0], ids[1]), opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, domain.Storage("find last message", err)
	}
	return d.toDomain(), nil
}

func (r *MongoRepository) MarkAllRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	ids, err := objectIDs(senderID, receiverID)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.msgColl.UpdateMany(ctx,
		bson.M{"sender_id": ids[0], "receiver_id": ids[1], "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, domain.Storage("mark read", err)
	}
	return res.ModifiedCount, nil
}

type summaryDoc struct {
	Counterpart primitive.ObjectID `bson:"_id"`
	Last        messageDoc         `bson:"last"`
	Unread      int64              `bson:"unread"`
}

func (r *MongoRepository) ConversationSummaries(ctx context.Context, viewerID string) (map[string]domain.Summary, error) {
	ids, err := objectIDs(viewerID)
	if err != nil {
		return nil, err
	}
	viewer := ids[0]

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": []bson.M{{"sender_id": viewer}, {"receiver_id": viewer}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", viewer}}, "$receiver_id", "$sender_id",
			}},
			"last": bson.M{"$first": "$$ROOT"},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver_id", viewer}},
					bson.M{"$eq": bson.A{"$read", false}},
				}}, 1, 0,
			}}},
		}}},
	}
	cur, err := r.msgColl.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.Storage("aggregate summaries", err)
	}
	defer cur.Close(ctx)

	out := map[string]domain.Summary{}
	for cur.Next(ctx) {
		var s summaryDoc
		if err := cur.Decode(&s); err != nil {
			return nil, domain.Storage("decode summary", err)
		}
		out[s.Counterpart.Hex()] = domain.Summary{LastMessage: s.Last.toDomain(), UnreadCount: s.Unread}
	}
	if err := cur.Err(); err != nil {
		return nil, domain.Storage("iterate summaries", err)
	}
	return out, nil
}
