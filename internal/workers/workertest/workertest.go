// Package workertest builds in-memory lifecycle fixtures for worker tests.
package workertest

import (
	"testing"
	"time"

	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/store/memory"
	"hostel-admissions/internal/workers"
)

var (
	Superintendent = models.Actor{ID: "usr-supt", Name: "Asha Rao", Role: models.RoleSuperintendent}
	Trustee        = models.Actor{ID: "usr-trustee", Name: "K. Mehta", Role: models.RoleTrustee}
	Applicant      = models.Actor{ID: "usr-app", Name: "Ravi Kumar", Role: models.RoleApplicant}
)

// Created is the fixed creation time of seeded applications.
var Created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func Runtime(t testing.TB) workers.Runtime {
	return workers.Runtime{Logger: logger.NewTestLogger(t)}
}

// Machine returns a machine over a fresh memory store.
func Machine(t testing.TB, opts ...lifecycle.Option) (*lifecycle.Machine, *memory.Store) {
	t.Helper()
	store := memory.New()
	return lifecycle.NewMachine(store, logger.NewTestLogger(t), opts...), store
}

// Seed stores an application in status.
func Seed(store *memory.Store, id string, status models.ApplicationStatus) *models.Application {
	app := &models.Application{
		ID:             id,
		TrackingNumber: "HST-2026-" + id,
		ApplicantName:  "Ravi Kumar",
		Vertical:       models.VerticalBoysHostel,
		Status:         status,
		PaymentStatus:  models.PaymentPaid,
		FatherMobile:   "+91 98765 43210",
		CreatedAt:      Created,
		UpdatedAt:      Created,
	}
	store.PutApplication(app)
	return app
}

// Evaluation is a complete interview evaluation.
func Evaluation() *models.Evaluation {
	return &models.Evaluation{
		AcademicBackground: &models.CriterionScore{Score: 4},
		Communication:      &models.CriterionScore{Score: 4},
		Discipline:         &models.CriterionScore{Score: 5},
		Motivation:         &models.CriterionScore{Score: 4},
		OverallScore:       17,
		Recommendation:     models.EvaluationApprove,
	}
}
