package persistence

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wfunc/typerace/models"
)

type sessionDocument struct {
	SessionKey           string `bson:"sessionKey"`
	models.SessionRecord `bson:",inline"`
}

// MongoStore keeps one document per finished game in the sessions collection.
type MongoStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	sessions := client.Database(database).Collection("sessions")
	_, err = sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "participants", Value: 1}}},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}

	return &MongoStore{client: client, sessions: sessions}, nil
}

func (m *MongoStore) RecordSession(ctx context.Context, rec *models.SessionRecord) (string, error) {
	doc := sessionDocument{
		SessionKey:    newSessionKey(),
		SessionRecord: *rec,
	}
	if _, err := m.sessions.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.SessionKey, nil
}

func (m *MongoStore) UserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	cursor, err := m.sessions.Find(ctx, bson.M{"participants": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var acc statsAccumulator
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		acc.add(doc.WPM[userID], doc.Accuracy[userID])
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return acc.result(userID)
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
