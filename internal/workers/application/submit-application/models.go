// internal/workers/application/submit-application/models.go
package submitapplication

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/workers"
)

// Input carries the applicant's form as submitted.
type Input = lifecycle.SubmitRequest

type Output = workers.TransitionOutput

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicantName", "vertical"],
	"properties": {
		"applicantName": {"type": "string", "minLength": 1},
		"vertical": {"type": "string", "minLength": 1},
		"fatherMobile": {"type": "string"},
		"motherMobile": {"type": "string"},
		"applicantMobile": {"type": "string"},
		"applicantEmail": {"type": "string"},
		"paymentStatus": {"type": "string"},
		"flags": {"type": "array", "items": {"type": "string"}}
	}
}`)
