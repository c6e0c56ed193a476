package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveApplicationStatus(t *testing.T) {
	tests := []struct {
		raw      ApplicationStatus
		active   bool
		expected DerivedStatus
	}{
		{StatusApproved, true, DerivedCheckedIn},
		{StatusApproved, false, DerivedStatus(StatusApproved)},
		{StatusForwarded, true, DerivedStatus(StatusForwarded)},
		{StatusRejected, false, DerivedStatus(StatusRejected)},
	}
	for _, tt := range tests {
		t.Run(string(tt.raw), func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveApplicationStatus(tt.raw, tt.active))
		})
	}
}

func TestDeriveResidentStatus(t *testing.T) {
	assert.Equal(t, DerivedCheckedIn, DeriveResidentStatus("ACTIVE", true))
	assert.Equal(t, DerivedActive, DeriveResidentStatus("", false))
	assert.Equal(t, DerivedStatus("ON_LEAVE"), DeriveResidentStatus("ON_LEAVE", false))
}

func TestRepresentedByResident(t *testing.T) {
	assert.True(t, RepresentedByResident(&Application{Status: StatusApproved, ResidentID: "stu-1"}))
	assert.False(t, RepresentedByResident(&Application{Status: StatusApproved}))
	assert.False(t, RepresentedByResident(&Application{Status: StatusForwarded, ResidentID: "stu-1"}))
}

func TestVerticalTable_ParseAndLabel(t *testing.T) {
	table := DefaultVerticals()

	for _, in := range []string{"BOYS_HOSTEL", "boys hostel", "Boys-Hostel", "boys", " Boys Hostel "} {
		v, ok := table.Parse(in)
		assert.True(t, ok, in)
		assert.Equal(t, VerticalBoysHostel, v, in)
	}

	v, ok := table.Parse("girls")
	assert.True(t, ok)
	assert.Equal(t, "Girls Hostel", table.Label(v))

	_, ok = table.Parse("annex")
	assert.False(t, ok)
	assert.Equal(t, "ANNEX", table.Label(Vertical("ANNEX")))
	assert.Equal(t, "Dharamshala", VerticalDharamshala.Label())
}

func TestApplicationStatus_Ordering(t *testing.T) {
	assert.True(t, StatusInterviewScheduled.AtLeast(StatusProvisionallyApproved))
	assert.False(t, StatusForwarded.AtLeast(StatusProvisionallyApproved))
	assert.False(t, StatusRejected.AtLeast(StatusDraft))
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, ApplicationStatus("PENDING").Valid())
}

func TestApplication_CloneIsDeep(t *testing.T) {
	app := &Application{
		ID:          "app-1",
		Flags:       []string{"late-fee"},
		ForwardedBy: &ForwardRecord{ByName: "Supt. Rao"},
	}
	c := app.Clone()
	c.Flags[0] = "changed"
	c.ForwardedBy.ByName = "other"

	assert.Equal(t, "late-fee", app.Flags[0])
	assert.Equal(t, "Supt. Rao", app.ForwardedBy.ByName)
}
