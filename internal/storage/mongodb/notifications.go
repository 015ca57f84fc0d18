package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/shop-service/internal/notification"
)

type logDoc struct {
	ID          string    `bson:"_id"`
	Type        string    `bson:"type"`
	Recipient   string    `bson:"recipient"`
	Subject     string    `bson:"subject"`
	Timestamp   string    `bson:"timestamp"`
	Status      string    `bson:"status"`
	OrderNumber string    `bson:"orderNumber,omitempty"`
	CreatedAt   time.Time `bson:"createdAt"`
}

type NotificationRepository struct {
	coll *mongo.Collection
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, entry *notification.LogEntry) error {
	doc := logDoc{
		ID:          entry.ID,
		Type:        string(entry.Type),
		Recipient:   entry.Recipient,
		Subject:     entry.Subject,
		Timestamp:   entry.Timestamp,
		Status:      string(entry.Status),
		OrderNumber: entry.OrderNumber,
		CreatedAt:   entry.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repository: failed to insert notification log: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByRecipients(ctx context.Context, recipients []string) ([]notification.LogEntry, error) {
	entries := []notification.LogEntry{}
	if len(recipients) == 0 {
		return entries, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"recipient": bson.M{"$in": recipients}}, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list notification logs: %w", err)
	}

	var docs []logDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode notification logs: %w", err)
	}
	for _, d := range docs {
		entries = append(entries, notification.LogEntry{
			ID:          d.ID,
			Type:        notification.LogType(d.Type),
			Recipient:   d.Recipient,
			Subject:     d.Subject,
			Timestamp:   d.Timestamp,
			Status:      notification.LogStatus(d.Status),
			OrderNumber: d.OrderNumber,
			CreatedAt:   d.CreatedAt,
		})
	}
	return entries, nil
}
