// internal/workers/application/forward-application/models.go
package forwardapplication

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input struct {
	ApplicationID  string                `json:"applicationId"`
	Actor          models.Actor          `json:"actor"`
	Recommendation models.Recommendation `json:"recommendation"`
	Remarks        string                `json:"remarks"`
}

type Output struct {
	workers.TransitionOutput
	ForwardedBy *models.ForwardRecord `json:"forwardedBy,omitempty"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "recommendation", "remarks"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"recommendation": {"type": "string", "enum": ["RECOMMEND", "NOT_RECOMMEND", "NEUTRAL"]},
		"remarks": {"type": "string"}
	}
}`)
