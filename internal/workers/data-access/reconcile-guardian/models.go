// internal/workers/data-access/reconcile-guardian/models.go
package reconcileguardian

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
)

type Input struct {
	Contact string `json:"contact"`
}

// Output carries the merged view plus the single ward, when there is exactly
// one, so the process can skip the ward picker.
type Output struct {
	Contact   string               `json:"contact"`
	Wards     []models.WardSummary `json:"wards"`
	WardCount int                  `json:"wardCount"`
	Ward      *models.WardSummary  `json:"ward,omitempty"`
	Degraded  []string             `json:"degraded,omitempty"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["contact"],
	"properties": {
		"contact": {"type": "string", "minLength": 1}
	}
}`)
