package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chatpoll/internal/domain"
)

type messageDoc struct {
	ID             bson.ObjectID `bson:"_id"`
	ConversationID string        `bson:"conversationId"`
	SenderID       string        `bson:"senderId"`
	ReceiverID     string        `bson:"receiverId"`
	Text           string        `bson:"text"`
	Status         string        `bson:"status"`
	CreatedAt      time.Time     `bson:"createdAt"`
}

func (d *messageDoc) toDomain() (*domain.Message, error) {
	status := d.Status
	if status == "" {
		status = domain.StatusSent
	}
	m := &domain.Message{
		ID:             d.ID.Hex(),
		ConversationID: d.ConversationID,
		SenderID:       d.SenderID,
		ReceiverID:     d.ReceiverID,
		Text:           d.Text,
		Status:         status,
		CreatedAt:      d.CreatedAt.UTC(),
	}
	if err := domain.Validate(m); err != nil {
		return nil, fmt.Errorf("message %s: %w", m.ID, err)
	}
	return m, nil
}

type MessageRepo struct {
	coll *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{coll: db.Collection(messagesCollection)}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

// Create assigns a client-side ObjectID. ObjectIDs from one process increase
// strictly; across processes they are ordered to the second.
func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	if err := domain.ValidateNew(m); err != nil {
		return err
	}
	doc := messageDoc{
		ID:             bson.NewObjectID(),
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Text:           m.Text,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = doc.ID.Hex()
	return nil
}

func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"conversationId": conversationID}, opts)
}

func (r *MessageRepo) CountUnread(ctx context.Context, conversationID, receiverID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"conversationId": conversationID,
		"receiverId":     receiverID,
		"status":         bson.M{"$ne": domain.StatusRead},
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return int(n), nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, receiverID string) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{
			"conversationId": conversationID,
			"receiverId":     receiverID,
			"status":         bson.M{"$ne": domain.StatusRead},
		},
		bson.M{"$set": bson.M{"status": domain.StatusRead}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepo) ListForUserSince(ctx context.Context, userID, sinceID string, limit int) ([]*domain.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": userID},
		bson.M{"receiverId": userID},
	}}
	if sinceID != "" {
		oid, ok := parseID(sinceID)
		if !ok {
			return nil, fmt.Errorf("poll cursor %q: %w", sinceID, domain.ErrInvalidInput)
		}
		filter["_id"] = bson.M{"$gt": oid}
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *MessageRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*domain.Message, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	res := make([]*domain.Message, 0, len(docs))
	for i := range docs {
		m, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}
