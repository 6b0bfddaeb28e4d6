package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

const collectionAppointmentEvents = "appointment_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAppointmentEvents)}
}

type auditDocument struct {
	EventID        string    `bson:"event_id"`
	Type           string    `bson:"type"`
	AppointmentID  int64     `bson:"appointment_id"`
	PatientID      int64     `bson:"patient_id"`
	ProviderID     int64     `bson:"provider_id"`
	Date           string    `bson:"date"`
	Time           string    `bson:"time"`
	Status         string    `bson:"status"`
	PreviousStatus string    `bson:"previous_status,omitempty"`
	PreviousDate   string    `bson:"previous_date,omitempty"`
	PreviousTime   string    `bson:"previous_time,omitempty"`
	ActorID        int64     `bson:"actor_id"`
	ActorRole      string    `bson:"actor_role"`
	OccurredAt     time.Time `bson:"occurred_at"`
	RecordedAt     time.Time `bson:"recorded_at"`
}

func toAuditDocument(e *domain.AppointmentEvent) auditDocument {
	return auditDocument{
		EventID:        e.ID,
		Type:           string(e.Type),
		AppointmentID:  e.AppointmentID,
		PatientID:      e.PatientID,
		ProviderID:     e.ProviderID,
		Date:           e.Date,
		Time:           e.Time,
		Status:         string(e.Status),
		PreviousStatus: string(e.PreviousStatus),
		PreviousDate:   e.PreviousDate,
		PreviousTime:   e.PreviousTime,
		ActorID:        e.ActorID,
		ActorRole:      string(e.ActorRole),
		OccurredAt:     e.OccurredAt.UTC(),
		RecordedAt:     time.Now().UTC(),
	}
}

// InsertEvent appends an event to the audit collection. Replaying an event
// already recorded is a no-op.
func (r *AuditRepository) InsertEvent(ctx context.Context, event *domain.AppointmentEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, toAuditDocument(event))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the audit collection relies on.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "appointment_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
