// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/teamhub/internal/app/system/events"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Events receives membership notifications. NATS is the
	// NATS-backed publisher when nats_url is set, otherwise nil.
	Events events.Publisher
	NATS   *events.NATSPublisher
}
