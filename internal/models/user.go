package models

// User is an account row. Only parent accounts carry linked wards.
type User struct {
	ID               string   `json:"id"`
	Role             Role     `json:"role"`
	FullName         string   `json:"fullName"`
	Mobile           string   `json:"mobile"`
	LinkedStudentIDs []string `json:"linkedStudentIds,omitempty"`
}

// Student is a resident record created once an application is approved.
type Student struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId,omitempty"`
	ApplicationID  string   `json:"applicationId,omitempty"`
	FullName       string   `json:"fullName"`
	Vertical       Vertical `json:"vertical"`
	Status         string   `json:"status"`
	FatherMobile   string   `json:"-"`
	MotherMobile   string   `json:"-"`
	GuardianMobile string   `json:"-"`
}

func (s *Student) GuardianMobiles() []string {
	var out []string
	for _, m := range []string{s.FatherMobile, s.MotherMobile, s.GuardianMobile} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

type Allocation struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId,omitempty"`
	StudentID     string `json:"studentId,omitempty"`
	RoomID        string `json:"roomId"`
	Active        bool   `json:"active"`
}

type Room struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

type WardSource string

const (
	SourceLinkedAccount WardSource = "LINKED_ACCOUNT"
	SourceApplication   WardSource = "APPLICATION"
	SourceResident      WardSource = "RESIDENT"
)

// WardSummary is the guardian-facing view of one ward. It never carries
// contacts, credentials or staff remarks.
type WardSummary struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId,omitempty"`
	Name           string        `json:"name"`
	Vertical       Vertical      `json:"vertical,omitempty"`
	VerticalLabel  string        `json:"verticalLabel,omitempty"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	Status         DerivedStatus `json:"status"`
	Room           string        `json:"room,omitempty"`
	Source         WardSource    `json:"source"`
}
