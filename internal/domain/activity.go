package domain

import (
	"fmt"
	"time"
)

type ActivityType string

const (
	ActivityHRScreen               ActivityType = "hr_screen"
	ActivityRecruiterCall          ActivityType = "recruiter_call"
	ActivityHiringManagerInterview ActivityType = "hiring_manager_interview"
	ActivityPanelInterview         ActivityType = "panel_interview"
	ActivityOnsiteInterview        ActivityType = "onsite_interview"
	ActivityInterviewScheduled     ActivityType = "interview_scheduled"
	ActivityInterviewDone          ActivityType = "interview_done"
	ActivityTechnicalTest          ActivityType = "technical_test"
	ActivityTakeHomeTest           ActivityType = "take_home_test"
	ActivityOfferReceived          ActivityType = "offer_received"
	ActivityRejected               ActivityType = "rejected"
	ActivityNote                   ActivityType = "note"
	ActivityFollowUp               ActivityType = "follow_up"
)

// ActivityTypes lists every activity type in picker order.
var ActivityTypes = []ActivityType{
	ActivityHRScreen,
	ActivityRecruiterCall,
	ActivityHiringManagerInterview,
	ActivityPanelInterview,
	ActivityOnsiteInterview,
	ActivityInterviewScheduled,
	ActivityInterviewDone,
	ActivityTechnicalTest,
	ActivityTakeHomeTest,
	ActivityOfferReceived,
	ActivityRejected,
	ActivityNote,
	ActivityFollowUp,
}

func (t ActivityType) Valid() bool {
	return t.SortOrder() > 0
}

func (t ActivityType) DisplayName() string {
	switch t {
	case ActivityHRScreen:
		return "HR Screen"
	case ActivityRecruiterCall:
		return "Recruiter Call"
	case ActivityHiringManagerInterview:
		return "Hiring Manager"
	case ActivityPanelInterview:
		return "Panel Interview"
	case ActivityOnsiteInterview:
		return "Onsite Interview"
	case ActivityInterviewScheduled:
		return "Interview Scheduled"
	case ActivityInterviewDone:
		return "Interview Done"
	case ActivityTechnicalTest:
		return "Technical Test"
	case ActivityTakeHomeTest:
		return "Take Home Test"
	case ActivityOfferReceived:
		return "Offer Received"
	case ActivityRejected:
		return "Rejected"
	case ActivityNote:
		return "Note"
	case ActivityFollowUp:
		return "Follow Up"
	}
	return string(t)
}

// Icon is an SF Symbols name, used only by the UI.
func (t ActivityType) Icon() string {
	switch t {
	case ActivityHRScreen:
		return "person.crop.circle"
	case ActivityRecruiterCall:
		return "phone"
	case ActivityHiringManagerInterview:
		return "person.bust"
	case ActivityPanelInterview:
		return "person.3"
	case ActivityOnsiteInterview:
		return "building.2"
	case ActivityInterviewScheduled:
		return "calendar.badge.clock"
	case ActivityInterviewDone:
		return "checkmark.circle"
	case ActivityTechnicalTest:
		return "laptopcomputer"
	case ActivityTakeHomeTest:
		return "doc.text"
	case ActivityOfferReceived:
		return "gift"
	case ActivityRejected:
		return "xmark.circle"
	case ActivityNote:
		return "note.text"
	case ActivityFollowUp:
		return "arrow.turn.up.right"
	}
	return "questionmark.circle"
}

// SortOrder breaks ties between activities logged on the same day.
// Higher values are more authoritative. Unknown types return 0.
func (t ActivityType) SortOrder() int {
	switch t {
	case ActivityOfferReceived:
		return 100
	case ActivityRejected:
		return 90
	case ActivityInterviewDone:
		return 80
	case ActivityOnsiteInterview:
		return 75
	case ActivityPanelInterview:
		return 70
	case ActivityHiringManagerInterview:
		return 65
	case ActivityTechnicalTest, ActivityTakeHomeTest:
		return 60
	case ActivityInterviewScheduled:
		return 55
	case ActivityRecruiterCall:
		return 50
	case ActivityHRScreen:
		return 45
	case ActivityFollowUp:
		return 20
	case ActivityNote:
		return 10
	}
	return 0
}

// AssociatedStatus is the status an activity of this type moves its
// application to. Notes and follow-ups carry none.
func (t ActivityType) AssociatedStatus() (ApplicationStatus, bool) {
	switch t {
	case ActivityHRScreen, ActivityRecruiterCall, ActivityHiringManagerInterview,
		ActivityPanelInterview, ActivityOnsiteInterview,
		ActivityInterviewScheduled, ActivityInterviewDone:
		return StatusInterview, true
	case ActivityTechnicalTest, ActivityTakeHomeTest:
		return StatusTechnicalTest, true
	case ActivityOfferReceived:
		return StatusOffering, true
	case ActivityRejected:
		return StatusRejected, true
	case ActivityNote, ActivityFollowUp:
		return "", false
	}
	return "", false
}

func ParseActivityType(raw string) (ActivityType, error) {
	t := ActivityType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown activity type %q", raw)
	}
	return t, nil
}

func (t ActivityType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown activity type %q", string(t))
	}
	return []byte(t), nil
}

func (t *ActivityType) UnmarshalText(b []byte) error {
	v, err := ParseActivityType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Activity is one logged event on an application's timeline. Activities are
// never edited; they go away only with their application.
type Activity struct {
	ID            string       `json:"id"`
	ApplicationID string       `json:"applicationId"`
	Type          ActivityType `json:"type"`
	OccurredAt    time.Time    `json:"occurredAt"`
	Note          string       `json:"note"`
}
