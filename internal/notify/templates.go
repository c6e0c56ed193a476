package notify

import (
	"fmt"
	"strings"

	"hostel-admissions/internal/models"
)

// templateCredentials is keyed outside the audit actions.
const templateCredentials models.AuditAction = "CREDENTIALS"

// DefaultTemplates covers the actions an applicant is told about.
func DefaultTemplates() map[models.AuditAction]models.NotificationTemplate {
	return map[models.AuditAction]models.NotificationTemplate{
		models.ActionForwarded: {
			Subject: "Application {{trackingNumber}} forwarded",
			Body:    "Dear {{applicantName}}, your {{vertical}} application {{trackingNumber}} has been reviewed and forwarded to the trustees.",
		},
		models.ActionProvisionallyApproved: {
			Subject: "Application {{trackingNumber}} provisionally approved",
			Body:    "Dear {{applicantName}}, your application {{trackingNumber}} has been provisionally approved. {{remarks}}",
		},
		models.ActionInterviewScheduled: {
			Subject: "Interview scheduled for {{trackingNumber}}",
			Body:    "Dear {{applicantName}}, your interview is on {{interviewDate}} at {{interviewTime}} ({{interviewMode}}). {{interviewPlace}}",
		},
		models.ActionInterviewRescheduled: {
			Subject: "Interview rescheduled for {{trackingNumber}}",
			Body:    "Dear {{applicantName}}, your interview has moved to {{interviewDate}} at {{interviewTime}} ({{interviewMode}}). {{interviewPlace}}",
		},
		models.ActionApproved: {
			Subject: "Admission approved: {{trackingNumber}}",
			Body:    "Dear {{applicantName}}, congratulations! Your admission to {{vertical}} is approved. {{remarks}}",
		},
		models.ActionRejected: {
			Subject: "Application {{trackingNumber}} update",
			Body:    "Dear {{applicantName}}, we regret that your application {{trackingNumber}} was not approved. {{remarks}}",
		},
		models.ActionMessageSent: {
			Subject: "Message about application {{trackingNumber}}",
			Body:    "Dear {{applicantName}}, {{remarks}}",
		},
		templateCredentials: {
			Subject: "Your hostel portal login",
			Body:    "Dear {{applicantName}}, sign in with username {{username}} and temporary password {{password}}. You will be asked to change it.",
		},
	}
}

// renderTemplate replaces {{key}} placeholders and drops unknown ones.
func renderTemplate(tmpl string, data map[string]string) string {
	result := tmpl
	for k, v := range data {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}
	return strings.TrimSpace(result)
}

func templateData(n models.Notification) map[string]string {
	data := map[string]string{
		"applicationId":  n.ApplicationID,
		"trackingNumber": n.TrackingNumber,
		"applicantName":  n.RecipientName,
	}
	for k, v := range n.Data {
		data[k] = v
	}
	return data
}

func interviewData(iv *models.Interview) map[string]string {
	if iv == nil {
		return nil
	}
	place := iv.Location
	if iv.Mode == models.ModeOnline {
		place = fmt.Sprintf("Join: %s", iv.MeetingLink)
	}
	return map[string]string{
		"interviewDate":  iv.ScheduledDate,
		"interviewTime":  iv.ScheduledTime,
		"interviewMode":  strings.ToLower(string(iv.Mode)),
		"interviewPlace": place,
	}
}
