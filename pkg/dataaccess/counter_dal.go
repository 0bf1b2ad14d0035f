package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thaiesports/ticketbot/pkg/dataaccess/monitoring"
	"github.com/thaiesports/ticketbot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const counterDalName = "counter_dal"

// counterDocID is the single system document holding every category counter.
const counterDocID = "ticket_counters"

// CounterDal persists the allocator's per-category counters. It satisfies
// ticketing.CounterStore. Without a database connection LoadCounters returns
// an empty map so the allocator seeds fresh counters, and saves are silently
// dropped.
type CounterDal interface {
	LoadCounters(ctx context.Context) (map[string]int, error)
	SaveCounters(ctx context.Context, counters map[string]int) error
}

type counterDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewCounterDal creates a new counter data access layer.
func NewCounterDal(logger *slog.Logger) CounterDal {
	l := logger.With(slog.String(logging.KeyDal, counterDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, ticket counters will not survive a restart")
	}

	return &counterDal{
		l:      l,
		client: MongoDB,
	}
}

type counterDoc struct {
	ID       string         `bson:"_id"`
	Counters map[string]int `bson:"counters"`
}

func (d *counterDal) LoadCounters(ctx context.Context) (map[string]int, error) {
	if d.client == nil {
		return map[string]int{}, nil
	}

	collection := d.client.Database(mongoDatabase).Collection("system")

	monitoring.MongoTotalRequests.WithLabelValues(counterDalName, "load_counters", mongoDatabase, "system").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(counterDalName, "load_counters", mongoDatabase, "system"))
	defer t.ObserveDuration()

	doc := new(counterDoc)
	err := collection.FindOne(ctx, bson.M{"_id": counterDocID}).Decode(doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return map[string]int{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error loading ticket counters: %w", err)
	}

	if doc.Counters == nil {
		return map[string]int{}, nil
	}
	return doc.Counters, nil
}

func (d *counterDal) SaveCounters(ctx context.Context, counters map[string]int) error {
	// No database means in-memory only mode; the warning was already logged
	// at construction, so dropping the save is not an error here.
	if d.client == nil {
		return nil
	}

	collection := d.client.Database(mongoDatabase).Collection("system")

	monitoring.MongoTotalRequests.WithLabelValues(counterDalName, "save_counters", mongoDatabase, "system").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(counterDalName, "save_counters", mongoDatabase, "system"))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"_id": counterDocID}, bson.M{"$set": bson.M{"counters": counters}}, opts)
	if err != nil {
		return fmt.Errorf("error saving ticket counters: %w", err)
	}
	return nil
}
