package service

import (
	"context"

	"MindEase/internal/consult"
	"MindEase/internal/db"
	"MindEase/internal/model"
	"MindEase/internal/repo"
)

// ConsultService backs the REST surface: directory and history reads
// plus stateless symptom analysis. The live conversation path runs over
// the websocket hub, not through here.
type ConsultService interface {
	GetDoctors(ctx context.Context, specialty string, availableOnly bool) ([]model.Doctor, error)
	GetRecentConsultations(ctx context.Context, userID string, page int64) (*db.PaginatedResult[model.ConsultationSession], error)
	GetSessionMessages(ctx context.Context, sessionKey string, page int64) (*db.PaginatedResult[model.Message], error)
	AnalyzeSymptoms(text string) model.SymptomReport
}

type consultService struct {
	doctorRepo       repo.DoctorRepository
	consultationRepo repo.ConsultationRepository
	engine           *consult.RuleEngine
}

func NewConsultService(doctorRepo repo.DoctorRepository, consultationRepo repo.ConsultationRepository, engine *consult.RuleEngine) ConsultService {
	return &consultService{
		doctorRepo:       doctorRepo,
		consultationRepo: consultationRepo,
		engine:           engine,
	}
}

func (s *consultService) GetDoctors(ctx context.Context, specialty string, availableOnly bool) ([]model.Doctor, error) {
	doctors, err := s.doctorRepo.GetDoctors(ctx, specialty)
	if err != nil {
		return nil, err
	}
	if availableOnly {
		doctors = Filter(doctors, func(d model.Doctor) bool { return d.Available })
	}
	return doctors, nil
}

func (s *consultService) GetRecentConsultations(ctx context.Context, userID string, page int64) (*db.PaginatedResult[model.ConsultationSession], error) {
	return s.consultationRepo.GetRecentConsultations(ctx, userID, page)
}

func (s *consultService) GetSessionMessages(ctx context.Context, sessionKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	return s.consultationRepo.GetSessionMessages(ctx, sessionKey, page)
}

func (s *consultService) AnalyzeSymptoms(text string) model.SymptomReport {
	return s.engine.Analyze(text)
}
