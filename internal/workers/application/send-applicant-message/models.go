// internal/workers/application/send-applicant-message/models.go
package sendapplicantmessage

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input struct {
	ApplicationID string       `json:"applicationId"`
	Actor         models.Actor `json:"actor"`
	Message       string       `json:"message"`
}

type Output = workers.TransitionOutput

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "message"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"message": {"type": "string", "maxLength": 1000}
	}
}`)
