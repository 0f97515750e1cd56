package repo

import (
	"context"
	"errors"
	"fmt"

	"MindEase/internal/db"
	"MindEase/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrInvalidSessionKey = errors.New("invalid session key: cannot be empty")
	ErrInvalidUserID     = errors.New("invalid user id: cannot be empty")
)

const historyPageSize = 15

type consultationRepository struct {
	sessions *db.Repository[model.ConsultationSession]
	messages *db.Repository[model.Message]
	logger   *zap.Logger
}

type ConsultationRepository interface {
	GetRecentConsultations(ctx context.Context, userID string, page int64) (*db.PaginatedResult[model.ConsultationSession], error)
	GetSessionMessages(ctx context.Context, sessionKey string, page int64) (*db.PaginatedResult[model.Message], error)
}

// NewConsultationRepository reads the same collections the realtime
// store adapter writes ("chats" and its flattened "chats_messages"
// subcollection); it only serves the history surfaces, never writes.
func NewConsultationRepository(con *mongo.Database, logger *zap.Logger) ConsultationRepository {
	return &consultationRepository{
		sessions: db.NewRepository[model.ConsultationSession](con, "chats"),
		messages: db.NewRepository[model.Message](con, "chats_messages"),
		logger:   logger,
	}
}

// GetRecentConsultations lists a user's sessions, most recently active
// first.
func (r *consultationRepository) GetRecentConsultations(ctx context.Context, userID string, page int64) (*db.PaginatedResult[model.ConsultationSession], error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	result, err := r.sessions.FindWithPagination(ctx, db.NewFilter().Eq("user_id", userID).Build(), db.PaginationParams{
		Page:     page,
		PageSize: historyPageSize,
		SortBy:   "last_timestamp",
		SortDesc: true,
	})
	if err != nil {
		r.logger.Error("failed to query consultations", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get consultations: %w", err)
	}

	r.logger.Debug("consultations retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(result.Data)),
		zap.Int64("total", result.Total),
	)
	return result, nil
}

// GetSessionMessages pages through a session's message history in send
// order.
func (r *consultationRepository) GetSessionMessages(ctx context.Context, sessionKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	if sessionKey == "" {
		return nil, ErrInvalidSessionKey
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	result, err := r.messages.FindWithPagination(ctx, db.NewFilter().Eq("parent_id", sessionKey).Build(), db.PaginationParams{
		Page:     page,
		PageSize: historyPageSize,
		SortBy:   "sent_at",
		SortDesc: false,
	})
	if err != nil {
		r.logger.Error("failed to query messages", zap.String("session", sessionKey), zap.Error(err))
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return result, nil
}
