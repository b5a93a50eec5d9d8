package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chatpoll/internal/domain"
)

type conversationDoc struct {
	ID              bson.ObjectID `bson:"_id"`
	Participants    []string      `bson:"participants"`
	PairKey         string        `bson:"pairKey,omitempty"`
	LastMessage     string        `bson:"lastMessage"`
	LastMessageTime *time.Time    `bson:"lastMessageTime"`
	CreatedAt       time.Time     `bson:"createdAt"`
}

func (d *conversationDoc) toDomain() (*domain.Conversation, error) {
	if len(d.Participants) != 2 {
		return nil, fmt.Errorf("conversation %s has %d participants: %w",
			d.ID.Hex(), len(d.Participants), domain.ErrMalformedDocument)
	}
	c := &domain.Conversation{
		ID:              d.ID.Hex(),
		Participants:    [2]string{d.Participants[0], d.Participants[1]},
		LastMessage:     d.LastMessage,
		LastMessageTime: utcPtr(d.LastMessageTime),
		CreatedAt:       d.CreatedAt.UTC(),
	}
	if err := domain.Validate(c); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", c.ID, err)
	}
	return c, nil
}

type ConversationRepo struct {
	coll *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) *ConversationRepo {
	return &ConversationRepo{coll: db.Collection(conversationsCollection)}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if err := domain.ValidateNew(c); err != nil {
		return err
	}
	doc := conversationDoc{
		ID:              bson.NewObjectID(),
		Participants:    []string{c.Participants[0], c.Participants[1]},
		PairKey:         c.PairKey(),
		LastMessage:     c.LastMessage,
		LastMessageTime: c.LastMessageTime,
		CreatedAt:       c.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	c.ID = doc.ID.Hex()
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByPair also matches conversations stored without a pairKey.
func (r *ConversationRepo) FindByPair(ctx context.Context, userA, userB string) (*domain.Conversation, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"pairKey": domain.PairKey(userA, userB)},
		bson.M{
			"pairKey":      bson.M{"$exists": false},
			"participants": bson.M{"$all": bson.A{userA, userB}, "$size": 2},
		},
	}})
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]*domain.Conversation, error) {
	// Descending sort places null lastMessageTime after every real timestamp.
	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageTime", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	res := make([]*domain.Conversation, 0, len(docs))
	for i := range docs {
		c, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func (r *ConversationRepo) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	oid, ok := parseID(id)
	if !ok {
		return nil
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"lastMessage": text, "lastMessageTime": at}},
	)
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

func (r *ConversationRepo) findOne(ctx context.Context, filter bson.M) (*domain.Conversation, error) {
	var doc conversationDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return doc.toDomain()
}
