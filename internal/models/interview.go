package models

import "time"

type InterviewMode string

const (
	ModeOnline   InterviewMode = "ONLINE"
	ModePhysical InterviewMode = "PHYSICAL"
)

type InterviewStatus string

const (
	InterviewNotScheduled InterviewStatus = "NOT_SCHEDULED"
	InterviewScheduled    InterviewStatus = "SCHEDULED"
	InterviewInProgress   InterviewStatus = "IN_PROGRESS"
	InterviewCompleted    InterviewStatus = "COMPLETED"
	InterviewMissed       InterviewStatus = "MISSED"
	InterviewCancelled    InterviewStatus = "CANCELLED"
)

type EvaluationRecommendation string

const (
	EvaluationApprove  EvaluationRecommendation = "APPROVE"
	EvaluationReject   EvaluationRecommendation = "REJECT"
	EvaluationDeferred EvaluationRecommendation = "DEFERRED"
)

// CriterionScore is one of the four scored evaluation criteria.
type CriterionScore struct {
	Score    int    `json:"score" validate:"required,min=1,max=5"`
	Comments string `json:"comments,omitempty"`
}

type Evaluation struct {
	AcademicBackground  *CriterionScore          `json:"academicBackground" validate:"required"`
	Communication       *CriterionScore          `json:"communication" validate:"required"`
	Discipline          *CriterionScore          `json:"discipline" validate:"required"`
	Motivation          *CriterionScore          `json:"motivation" validate:"required"`
	OverallScore        int                      `json:"overallScore" validate:"required,min=1,max=20"`
	OverallObservations string                   `json:"overallObservations,omitempty"`
	Recommendation      EvaluationRecommendation `json:"recommendation" validate:"required,oneof=APPROVE REJECT DEFERRED"`
}

type Interview struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"applicationId"`
	ScheduledDate string          `json:"scheduledDate"` // 2006-01-02
	ScheduledTime string          `json:"scheduledTime"` // 15:04
	Mode          InterviewMode   `json:"mode"`
	MeetingLink   string          `json:"meetingLink,omitempty"`
	Location      string          `json:"location,omitempty"`
	Status        InterviewStatus `json:"status"`
	Score         *int            `json:"score,omitempty"`
	Evaluation    *Evaluation     `json:"evaluation,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Open reports whether the interview still blocks scheduling a new one.
func (i *Interview) Open() bool {
	return i != nil && i.Status != InterviewCancelled
}

func (i *Interview) Clone() *Interview {
	if i == nil {
		return nil
	}
	c := *i
	if i.Score != nil {
		s := *i.Score
		c.Score = &s
	}
	if i.Evaluation != nil {
		e := *i.Evaluation
		c.Evaluation = &e
	}
	return &c
}
