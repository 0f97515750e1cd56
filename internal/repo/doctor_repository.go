package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"MindEase/internal/db"
	"MindEase/internal/model"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrInvalidDoctorID = errors.New("invalid doctor id: cannot be empty")

const defaultReadTimeout = 30 * time.Second

type doctorRepository struct {
	mongoRepo *db.Repository[model.Doctor]
	logger    *zap.Logger
}

type DoctorRepository interface {
	GetDoctors(ctx context.Context, specialty string) ([]model.Doctor, error)
	GetDoctor(ctx context.Context, id string) (*model.Doctor, error)
}

func NewDoctorRepository(con *mongo.Database, logger *zap.Logger) DoctorRepository {
	return &doctorRepository{
		mongoRepo: db.NewRepository[model.Doctor](con, "doctors"),
		logger:    logger,
	}
}

// GetDoctors lists the doctor directory sorted by name. A non-empty
// specialty narrows the list with a case-insensitive contains match.
func (r *doctorRepository) GetDoctors(ctx context.Context, specialty string) ([]model.Doctor, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.Empty()
	if specialty != "" {
		filter = db.NewFilter().Contains("specialty", specialty).Build()
	}

	doctors, err := r.mongoRepo.FindAll(ctx, filter, "name")
	if err != nil {
		r.logger.Error("failed to query doctors", zap.Error(err))
		return nil, fmt.Errorf("failed to get doctors: %w", err)
	}

	r.logger.Debug("doctors retrieved", zap.Int("count", len(doctors)))
	return doctors, nil
}

func (r *doctorRepository) GetDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	if id == "" {
		return nil, ErrInvalidDoctorID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	doctor, err := r.mongoRepo.FindOne(ctx, db.NewFilter().Eq("_id", id).Build())
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("failed to fetch doctor", zap.String("doctor_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch doctor: %w", err)
	}
	return doctor, nil
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
