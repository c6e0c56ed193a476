// internal/workers/application/final-decision/models.go
package finaldecision

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input struct {
	ApplicationID string       `json:"applicationId"`
	Actor         models.Actor `json:"actor"`
	Approve       bool         `json:"approve"`
	Remarks       string       `json:"remarks"`
}

type Output struct {
	workers.TransitionOutput
	AccountCreated bool `json:"accountCreated"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "approve", "remarks"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"approve": {"type": "boolean"},
		"remarks": {"type": "string"}
	}
}`)
