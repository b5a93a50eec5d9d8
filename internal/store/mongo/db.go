// Package mongo stores users, conversations and messages as documents with
// camelCase fields and ObjectID keys, the layout existing chat databases
// already use.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// Open connects to MongoDB and returns the named database.
func Open(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(dbName), nil
}

// Migrate creates the indexes the repositories rely on. The pairKey index only
// covers documents that carry the field, so conversations written before it
// existed do not collide on a missing key.
func Migrate(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		conversationsCollection: {
			{
				Keys: bson.D{{Key: "pairKey", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"pairKey": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageTime", Value: -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "_id", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo migration: create indexes for %s: %w", name, err)
		}
	}
	return nil
}

func parseID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return oid, true
}
