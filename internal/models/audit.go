package models

import "time"

type Role string

const (
	RoleApplicant      Role = "APPLICANT"
	RoleStudent        Role = "STUDENT"
	RoleParent         Role = "PARENT"
	RoleSuperintendent Role = "SUPERINTENDENT"
	RoleTrustee        Role = "TRUSTEE"
	RoleAccounts       Role = "ACCOUNTS"
	RoleSystem         Role = "SYSTEM"
)

// Actor identifies who performed an action.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

type AuditAction string

const (
	ActionSubmitted             AuditAction = "SUBMITTED"
	ActionReviewStarted         AuditAction = "REVIEW_STARTED"
	ActionForwarded             AuditAction = "FORWARDED"
	ActionProvisionallyApproved AuditAction = "PROVISIONALLY_APPROVED"
	ActionInterviewScheduled    AuditAction = "INTERVIEW_SCHEDULED"
	ActionInterviewStarted      AuditAction = "INTERVIEW_STARTED"
	ActionInterviewRescheduled  AuditAction = "INTERVIEW_RESCHEDULED"
	ActionInterviewCancelled    AuditAction = "INTERVIEW_CANCELLED"
	ActionInterviewMissed       AuditAction = "INTERVIEW_MISSED"
	ActionInterviewCompleted    AuditAction = "INTERVIEW_COMPLETED"
	ActionApproved              AuditAction = "APPROVED"
	ActionRejected              AuditAction = "REJECTED"
	ActionCancelled             AuditAction = "CANCELLED"
	ActionMessageSent           AuditAction = "MESSAGE_SENT"
	ActionCorrection            AuditAction = "CORRECTION"
)

// RequiresRemarks lists the actions whose entries must carry remarks.
func (a AuditAction) RequiresRemarks() bool {
	switch a {
	case ActionApproved, ActionRejected, ActionProvisionallyApproved, ActionForwarded,
		ActionMessageSent, ActionInterviewCancelled, ActionCancelled, ActionCorrection:
		return true
	}
	return false
}

// AuditEntry is immutable once appended.
type AuditEntry struct {
	ID            string            `json:"id"`
	ApplicationID string            `json:"applicationId"`
	Action        AuditAction       `json:"action"`
	PerformedBy   Actor             `json:"performedBy"`
	PerformedAt   time.Time         `json:"performedAt"`
	Remarks       string            `json:"remarks"`
	FromStatus    ApplicationStatus `json:"fromStatus,omitempty"`
	ToStatus      ApplicationStatus `json:"toStatus,omitempty"`
	SupersedesID  string            `json:"supersedesId,omitempty"`
}
