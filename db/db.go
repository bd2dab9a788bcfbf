package db

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Database bundles the client and every collection the app touches.
// It is constructed once in main and handed to the feature packages;
// nothing in the app reaches for a package-level client.
type Database struct {
	Client   *mongo.Client
	Users    *mongo.Collection
	Posts    *mongo.Collection
	Comments *mongo.Collection
	Likes    *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*Database, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return New(client.Database("crumbdb")), nil
}

// New wires a Database from an already connected mongo database.
// Split out of Connect so tests can point it at a mock deployment.
func New(mdb *mongo.Database) *Database {
	return &Database{
		Client:   mdb.Client(),
		Users:    mdb.Collection("users"),
		Posts:    mdb.Collection("posts"),
		Comments: mdb.Collection("comments"),
		Likes:    mdb.Collection("likes"),
	}
}

func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// WithTransaction runs fn inside one multi-document transaction. Every
// write in fn lands together or not at all, which is what keeps the
// mirrored follow edges and the like counter/edge pairs consistent.
func (d *Database) WithTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := d.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func OptionsFindLatest(limit int64) *options.FindOptions {
	opts := options.Find()
	opts.SetSort(map[string]interface{}{"createdAt": -1})
	opts.SetLimit(limit)
	return opts
}
