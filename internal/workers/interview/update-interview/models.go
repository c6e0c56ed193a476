// internal/workers/interview/update-interview/models.go
package updateinterview

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
	scheduleinterview "hostel-admissions/internal/workers/interview/schedule-interview"
)

type Action string

const (
	ActionJoin       Action = "join"
	ActionReschedule Action = "reschedule"
	ActionCancel     Action = "cancel"
	ActionMissed     Action = "missed"
)

type Input struct {
	ApplicationID  string               `json:"applicationId"`
	Action         Action               `json:"action"`
	Date           string               `json:"date,omitempty"`
	Time           string               `json:"time,omitempty"`
	Mode           models.InterviewMode `json:"mode,omitempty"`
	LocationOrLink string               `json:"locationOrLink,omitempty"`
	Actor          models.Actor         `json:"actor"`
	Remarks        string               `json:"remarks,omitempty"`
}

type Output = scheduleinterview.Output

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "action", "actor"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"action": {"type": "string", "enum": ["join", "reschedule", "cancel", "missed"]},
		"actor": ` + workers.ActorSchema + `,` + scheduleinterview.InterviewSlotSchema + `,
		"remarks": {"type": "string"}
	}
}`)
