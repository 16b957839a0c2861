package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type ConnectionInfo struct {
	URI        string
	Scheme     string
	User       string
	Password   string
	Host       string
	Port       string
	DB         string
	AuthSource string

	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
}

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// URIFor builds a connection string from parts when URI is not set.
func (info ConnectionInfo) URIFor() string {
	if info.URI != "" {
		return info.URI
	}

	scheme := info.Scheme
	if scheme == "" {
		scheme = "mongodb"
	}

	auth := ""
	if info.User != "" {
		auth = info.User
		if info.Password != "" {
			auth += ":" + info.Password
		}
		auth += "@"
	}

	host := info.Host
	if info.Port != "" && scheme != "mongodb+srv" {
		host += ":" + info.Port
	}

	query := ""
	if info.AuthSource != "" {
		query = "?authSource=" + info.AuthSource
	}

	return fmt.Sprintf("%s://%s%s/%s%s", scheme, auth, host, info.DB, query)
}

// NewConnection builds the client without dialing. The driver connects on
// first use, so an unreachable cluster surfaces inside the first operation.
func NewConnection(ctx context.Context, info ConnectionInfo) (*Mongo, error) {
	opts := options.Client().ApplyURI(info.URIFor())
	if info.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(info.MaxPoolSize)
	}
	if info.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(info.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	db := client.Database(info.DB)
	return &Mongo{Client: client, Database: db}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return mongo.ErrClientDisconnected
	}
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	if m.Client != nil {
		return m.Client.Disconnect(ctx)
	}
	return nil
}
