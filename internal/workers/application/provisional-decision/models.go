// internal/workers/application/provisional-decision/models.go
package provisionaldecision

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input struct {
	ApplicationID     string       `json:"applicationId"`
	Actor             models.Actor `json:"actor"`
	Approve           bool         `json:"approve"`
	RequiresInterview bool         `json:"requiresInterview"`
	Remarks           string       `json:"remarks"`
}

type Output struct {
	workers.TransitionOutput
	RequiresInterview bool `json:"requiresInterview"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "approve", "remarks"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"approve": {"type": "boolean"},
		"requiresInterview": {"type": "boolean"},
		"remarks": {"type": "string"}
	}
}`)
