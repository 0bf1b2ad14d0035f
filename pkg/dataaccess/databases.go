package dataaccess

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool, wired once at
// startup by the config layer. When it is nil the bot runs purely in-memory:
// the counter store degrades to a no-op and the ticket mirror reports
// ErrNoDatabase, which its callers treat as a best-effort miss.
var MongoDB *mongo.Client

const mongoDatabase = "ticketbot"
