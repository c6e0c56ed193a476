// internal/workers/application/review-application/models.go
package reviewapplication

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input struct {
	ApplicationID string       `json:"applicationId"`
	Actor         models.Actor `json:"actor"`
	Remarks       string       `json:"remarks"`
}

type Output = workers.TransitionOutput

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "remarks"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"remarks": {"type": "string"}
	}
}`)
