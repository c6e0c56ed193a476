// internal/workers/data-access/list-audit/models.go
package listaudit

import (
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/models"
)

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID string              `json:"applicationId"`
	Entries       []models.AuditEntry `json:"entries"`
	Count         int                 `json:"count"`
}

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["applicationId"],
	"properties": {
		"applicationId": {"type": "string", "minLength": 1}
	}
}`)
