// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	StatusDraft                 ApplicationStatus = "DRAFT"
	StatusSubmitted             ApplicationStatus = "SUBMITTED"
	StatusReview                ApplicationStatus = "REVIEW"
	StatusForwarded             ApplicationStatus = "FORWARDED"
	StatusProvisionallyApproved ApplicationStatus = "PROVISIONALLY_APPROVED"
	StatusInterviewScheduled    ApplicationStatus = "INTERVIEW_SCHEDULED"
	StatusInterviewCompleted    ApplicationStatus = "INTERVIEW_COMPLETED"
	StatusApproved              ApplicationStatus = "APPROVED"
	StatusRejected              ApplicationStatus = "REJECTED"
)

// statusRank orders the non-terminal path. REJECTED sits outside it.
var statusRank = map[ApplicationStatus]int{
	StatusDraft:                 0,
	StatusSubmitted:             1,
	StatusReview:                2,
	StatusForwarded:             3,
	StatusProvisionallyApproved: 4,
	StatusInterviewScheduled:    5,
	StatusInterviewCompleted:    6,
	StatusApproved:              7,
}

func (s ApplicationStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusRejected
}

// IsTerminal reports whether no further transition may succeed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AtLeast reports whether s has reached other on the approval path.
func (s ApplicationStatus) AtLeast(other ApplicationStatus) bool {
	a, okA := statusRank[s]
	b, okB := statusRank[other]
	return okA && okB && a >= b
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPending PaymentStatus = "PENDING"
	PaymentFailed  PaymentStatus = "FAILED"
)

type Recommendation string

const (
	RecommendationRecommend    Recommendation = "RECOMMEND"
	RecommendationNotRecommend Recommendation = "NOT_RECOMMEND"
	RecommendationNeutral      Recommendation = "NEUTRAL"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationRecommend, RecommendationNotRecommend, RecommendationNeutral:
		return true
	}
	return false
}

// ForwardRecord is written once, when the application leaves REVIEW.
type ForwardRecord struct {
	ByID           string         `json:"byId"`
	ByName         string         `json:"byName"`
	At             time.Time      `json:"at"`
	Recommendation Recommendation `json:"recommendation"`
	Remarks        string         `json:"remarks"`
}

type Application struct {
	ID                string            `json:"id"`
	TrackingNumber    string            `json:"trackingNumber"`
	ApplicantName     string            `json:"applicantName"`
	Vertical          Vertical          `json:"vertical"`
	Status            ApplicationStatus `json:"status"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	FatherMobile      string            `json:"fatherMobile,omitempty"`
	MotherMobile      string            `json:"motherMobile,omitempty"`
	ApplicantMobile   string            `json:"applicantMobile,omitempty"`
	ApplicantEmail    string            `json:"applicantEmail,omitempty"`
	Flags             []string          `json:"flags,omitempty"`
	ForwardedBy       *ForwardRecord    `json:"forwardedBy,omitempty"`
	RequiresInterview bool              `json:"requiresInterview"`
	InterviewID       string            `json:"interviewId,omitempty"`
	ResidentID        string            `json:"residentId,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Archived applications are kept but accept no further lifecycle actions.
func (a *Application) Archived() bool {
	return a.Status.IsTerminal()
}

// GuardianMobiles returns the non-empty father and mother contacts.
func (a *Application) GuardianMobiles() []string {
	var out []string
	for _, m := range []string{a.FatherMobile, a.MotherMobile} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (a *Application) Clone() *Application {
	if a == nil {
		return nil
	}
	c := *a
	if a.Flags != nil {
		c.Flags = append([]string(nil), a.Flags...)
	}
	if a.ForwardedBy != nil {
		fb := *a.ForwardedBy
		c.ForwardedBy = &fb
	}
	return &c
}
