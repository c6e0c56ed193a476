package models

// DerivedStatus is the display status shown to guardians. It is computed,
// never stored.
type DerivedStatus string

const (
	DerivedCheckedIn DerivedStatus = "CHECKED_IN"
	DerivedActive    DerivedStatus = "ACTIVE"
)

// DeriveApplicationStatus:
//
//	raw status  active allocation  derived
//	APPROVED    yes                CHECKED_IN
//	APPROVED    no                 APPROVED
//	other       any                raw status
func DeriveApplicationStatus(raw ApplicationStatus, activeAllocation bool) DerivedStatus {
	if raw == StatusApproved && activeAllocation {
		return DerivedCheckedIn
	}
	return DerivedStatus(raw)
}

// DeriveResidentStatus returns CHECKED_IN for a resident with an active
// allocation and the resident's own status (ACTIVE when blank) otherwise.
func DeriveResidentStatus(raw string, activeAllocation bool) DerivedStatus {
	if activeAllocation {
		return DerivedCheckedIn
	}
	if raw == "" {
		return DerivedActive
	}
	return DerivedStatus(raw)
}

// RepresentedByResident reports whether an application's person is already
// covered by a resident record and must not be listed from the application.
func RepresentedByResident(app *Application) bool {
	return app.Status == StatusApproved && app.ResidentID != ""
}
