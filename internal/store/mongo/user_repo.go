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

type userDoc struct {
	ID          bson.ObjectID `bson:"_id"`
	Username    string        `bson:"username"`
	Password    string        `bson:"password"`
	DisplayName string        `bson:"displayName"`
	Avatar      string        `bson:"avatar"`
	Online      bool          `bson:"online"`
	LastSeen    *time.Time    `bson:"lastSeen"`
	CreatedAt   time.Time     `bson:"createdAt"`
}

func (d *userDoc) toDomain() (*domain.User, error) {
	u := &domain.User{
		ID:             d.ID.Hex(),
		Username:       d.Username,
		HashedPassword: d.Password,
		DisplayName:    d.DisplayName,
		Avatar:         d.Avatar,
		Online:         d.Online,
		LastSeen:       utcPtr(d.LastSeen),
		CreatedAt:      d.CreatedAt.UTC(),
	}
	if err := domain.Validate(u); err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	return u, nil
}

type UserRepo struct {
	coll *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{coll: db.Collection(usersCollection)}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := domain.ValidateNew(u); err != nil {
		return err
	}
	doc := userDoc{
		ID:          bson.NewObjectID(),
		Username:    u.Username,
		Password:    u.HashedPassword,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Online:      u.Online,
		LastSeen:    u.LastSeen,
		CreatedAt:   u.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = doc.ID.Hex()
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepo) ListExcept(ctx context.Context, excludeID string, limit int) ([]*domain.User, error) {
	filter := bson.M{}
	if oid, ok := parseID(excludeID); ok {
		filter["_id"] = bson.M{"$ne": oid}
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		u, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (r *UserRepo) SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error {
	oid, ok := parseID(id)
	if !ok {
		return nil
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"online": online, "lastSeen": lastSeen}},
	)
	if err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
