package service

import (
	"context"
	"testing"

	"MindEase/internal/consult"
	"MindEase/internal/db"
	"MindEase/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDoctorRepo struct {
	doctors []model.Doctor
}

func (s *stubDoctorRepo) GetDoctors(ctx context.Context, specialty string) ([]model.Doctor, error) {
	return s.doctors, nil
}

func (s *stubDoctorRepo) GetDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	for _, d := range s.doctors {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

type stubConsultationRepo struct{}

func (stubConsultationRepo) GetRecentConsultations(ctx context.Context, userID string, page int64) (*db.PaginatedResult[model.ConsultationSession], error) {
	return &db.PaginatedResult[model.ConsultationSession]{Page: page}, nil
}

func (stubConsultationRepo) GetSessionMessages(ctx context.Context, sessionKey string, page int64) (*db.PaginatedResult[model.Message], error) {
	return &db.PaginatedResult[model.Message]{Page: page}, nil
}

func TestGetDoctorsAvailableOnly(t *testing.T) {
	repo := &stubDoctorRepo{doctors: []model.Doctor{
		{ID: "d1", Name: "Abara", Available: true},
		{ID: "d2", Name: "Rivera", Available: false},
		{ID: "d3", Name: "Zhou", Available: true},
	}}
	svc := NewConsultService(repo, stubConsultationRepo{}, consult.NewRuleEngine(nil, "", "", ""))

	all, err := svc.GetDoctors(context.Background(), "", false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := svc.GetDoctors(context.Background(), "", true)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "d1", available[0].ID)
	assert.Equal(t, "d3", available[1].ID)
}

func TestAnalyzeSymptomsPassesThrough(t *testing.T) {
	svc := NewConsultService(&stubDoctorRepo{}, stubConsultationRepo{}, consult.NewRuleEngine(nil, "", "", ""))

	report := svc.AnalyzeSymptoms("stress at work")
	assert.Equal(t, "Counseling Psychologist", report.Suggestion)
	assert.Equal(t, "85%", report.Confidence)
}

func TestFilterKeepsOrder(t *testing.T) {
	out := Filter([]int{1, 2, 3, 4, 5}, func(v int) bool { return v%2 == 1 })
	assert.Equal(t, []int{1, 3, 5}, out)
}
