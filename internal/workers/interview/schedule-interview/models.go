// internal/workers/interview/schedule-interview/models.go
package scheduleinterview

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

type Input = lifecycle.ScheduleRequest

type Output struct {
	workers.TransitionOutput
	InterviewID   string               `json:"interviewId"`
	ScheduledDate string               `json:"scheduledDate"`
	ScheduledTime string               `json:"scheduledTime"`
	Mode          models.InterviewMode `json:"mode"`
}

// InterviewSlotSchema is shared by schedule and reschedule.
const InterviewSlotSchema = `
		"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"time": {"type": "string", "pattern": "^\\d{2}:\\d{2}$"},
		"mode": {"type": "string", "enum": ["ONLINE", "PHYSICAL"]},
		"locationOrLink": {"type": "string", "minLength": 1}`

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "date", "time", "mode", "locationOrLink"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,` + InterviewSlotSchema + `,
		"remarks": {"type": "string"}
	}
}`)
