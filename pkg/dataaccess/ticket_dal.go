package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/thaiesports/ticketbot/pkg/dataaccess/monitoring"
	"github.com/thaiesports/ticketbot/pkg/entities"
	"github.com/thaiesports/ticketbot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

// ErrNoDatabase is returned when the bot runs without a mongo connection.
// Callers treat every DAL failure as best-effort, so this only shows up in
// logs.
var ErrNoDatabase = errors.New("no database connection")

// TicketDal is the best-effort mirror of ticket records. The in-memory
// registry stays the source of truth for live tickets; this store only serves
// reporting after closure.
type TicketDal interface {
	// SaveTicket upserts a ticket record keyed by ticket number.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// UpdateTicketStatus patches the status plus any extra fields onto the
	// stored record.
	UpdateTicketStatus(ctx context.Context, ticketNumber int, status entities.TicketStatus, fields map[string]any) error

	// SaveTranscriptMeta records where a generated transcript lives.
	SaveTranscriptMeta(ctx context.Context, ticketNumber int, url string, messageCount int) error
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(logger *slog.Logger) TicketDal {
	l := logger.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, ticket mirroring is disabled")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDal) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	if d.client == nil {
		return ErrNoDatabase
	}

	collection := d.client.Database(mongoDatabase).Collection("tickets")

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"ticket_number": ticket.TicketNumber}, bson.M{"$set": ticket}, opts)
	if err != nil {
		return fmt.Errorf("error upserting ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) UpdateTicketStatus(ctx context.Context, ticketNumber int, status entities.TicketStatus, fields map[string]any) error {
	if d.client == nil {
		return ErrNoDatabase
	}

	collection := d.client.Database(mongoDatabase).Collection("tickets")

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "update_ticket_status", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "update_ticket_status", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	set := bson.M{"status": status}
	for k, v := range fields {
		set[k] = v
	}

	_, err := collection.UpdateOne(ctx, bson.M{"ticket_number": ticketNumber}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating ticket status: %w", err)
	}
	return nil
}

func (d *ticketDal) SaveTranscriptMeta(ctx context.Context, ticketNumber int, url string, messageCount int) error {
	if d.client == nil {
		return ErrNoDatabase
	}

	collection := d.client.Database(mongoDatabase).Collection("transcripts")

	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_transcript_meta", mongoDatabase, "transcripts").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_transcript_meta", mongoDatabase, "transcripts"))
	defer t.ObserveDuration()

	_, err := collection.InsertOne(ctx, bson.M{
		"ticket_number": ticketNumber,
		"url":           url,
		"message_count": messageCount,
	})
	if err != nil {
		return fmt.Errorf("error saving transcript metadata: %w", err)
	}
	return nil
}
