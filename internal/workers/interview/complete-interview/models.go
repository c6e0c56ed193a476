// internal/workers/interview/complete-interview/models.go
package completeinterview

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/workers"
)

type Input = lifecycle.CompleteRequest

type Output struct {
	workers.TransitionOutput
	Score          int    `json:"score"`
	Recommendation string `json:"recommendation"`
}

// The evaluation is only shape-checked here; completeness is enforced by the
// lifecycle so the error lists every missing criterion at once.
var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId", "actor", "evaluation"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"actor": ` + workers.ActorSchema + `,
		"evaluation": {"type": "object"},
		"remarks": {"type": "string"}
	}
}`)
