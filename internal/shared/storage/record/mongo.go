package record

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoCollection = "records"

type mongoDoc struct {
	Key     string `bson:"_id"`
	Value   []byte `bson:"value"`
	Version int64  `bson:"version"`
}

// MongoStore keeps each key as one document. Every write bumps version and
// Update only succeeds against the version it read.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and uses the records collection of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("record: connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("record: ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(mongoCollection),
	}, nil
}

func (s *MongoStore) find(ctx context.Context, key string) (mongoDoc, error) {
	var doc mongoDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return mongoDoc{}, ErrNotFound
		}
		return mongoDoc{}, err
	}
	return doc, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}, "$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (s *MongoStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": key}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for i := 0; i < maxRetries; i++ {
		doc, err := s.find(ctx, key)
		exists := true
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			exists = false
		}

		var current []byte
		if exists {
			current = doc.Value
		}
		next, err := fn(current)
		if err != nil {
			return err
		}

		switch {
		case next == nil && !exists:
			return nil
		case next == nil:
			res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key, "version": doc.Version})
			if err != nil {
				return err
			}
			if res.DeletedCount == 1 {
				return nil
			}
		case !exists:
			_, err := s.coll.InsertOne(ctx, mongoDoc{Key: key, Value: next, Version: 1})
			if err == nil {
				return nil
			}
			if !mongo.IsDuplicateKeyError(err) {
				return err
			}
		default:
			res, err := s.coll.UpdateOne(ctx,
				bson.M{"_id": key, "version": doc.Version},
				bson.M{"$set": bson.M{"value": next, "version": doc.Version + 1}},
			)
			if err != nil {
				return err
			}
			if res.MatchedCount == 1 {
				return nil
			}
		}
	}
	return ErrConflict
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
