package repository

import (
	"context"
	"fmt"

	"github.com/gatherly/gatherly/internal/domain"
	"github.com/gatherly/gatherly/internal/infrastructure/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPostgres connects to the hosted Postgres and ensures the chat
// message schema exists.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := db.AutoMigrate(&domain.ChatMessage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat_messages: %w", err)
	}

	return db, nil
}

type postgresMessageStore struct {
	db     *gorm.DB
	tracer trace.Tracer
}

func NewPostgresMessageStore(db *gorm.DB) domain.MessageStore {
	return &postgresMessageStore{
		db:     db,
		tracer: tracing.GetTracer("repository"),
	}
}

func (s *postgresMessageStore) Create(ctx context.Context, message *domain.ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "messageStore.Create")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("chat.event_id", message.EventID),
		attribute.String("chat.user_id", message.UserID),
	)

	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return &domain.PersistenceError{Err: err}
	}

	// Degenerate case: the insert reported success but returned no row.
	// Recover the just-inserted row by matching on event, user, and
	// content, most recent first.
	if message.ID == 0 {
		var recovered domain.ChatMessage
		err := s.db.WithContext(ctx).
			Where("event_id = ? AND user_id = ? AND content = ?", message.EventID, message.UserID, message.Content).
			Order("created_at DESC").
			First(&recovered).Error
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "insert returned no row")
			return &domain.PersistenceError{Err: err}
		}
		*message = recovered
	}

	return nil
}

func (s *postgresMessageStore) ListByEvent(ctx context.Context, eventID int64) ([]domain.ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "messageStore.ListByEvent")
	defer span.End()

	span.SetAttributes(attribute.Int64("chat.event_id", eventID))

	messages := make([]domain.ChatMessage, 0)
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, &domain.PersistenceError{Err: err}
	}

	return messages, nil
}
