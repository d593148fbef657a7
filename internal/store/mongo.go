package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	appLog "timerdash/internal/log"
	"timerdash/internal/model"
)

const mongoConnectTimeout = 10 * time.Second

// MongoStore keeps one document per event, using the event id as _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo store: uri is empty")
	}

	cctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo store: connect")
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo store: ping")
	}

	appLog.Info("mongo store connected", "database", database, "collection", collection)
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) List(ctx context.Context) ([]model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo store: find")
	}
	defer cur.Close(ctx)

	out := make([]model.Event, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "mongo store: decode")
	}
	return out, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (model.Event, error) {
	var ev model.Event
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&ev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Event{}, ErrNotFound
	}
	if err != nil {
		return model.Event{}, errors.Wrapf(err, "mongo store: get %s", id)
	}
	return ev, nil
}

func (s *MongoStore) Create(ctx context.Context, ev model.Event) error {
	_, err := s.coll.InsertOne(ctx, ev)
	if mongo.IsDuplicateKeyError(err) {
		return ErrExists
	}
	if err != nil {
		return errors.Wrapf(err, "mongo store: insert %s", ev.ID)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, ev model.Event) error {
	res, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: ev.ID}}, ev)
	if err != nil {
		return errors.Wrapf(err, "mongo store: replace %s", ev.ID)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrapf(err, "mongo store: delete %s", id)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
