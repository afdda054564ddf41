package domain

import "fmt"

// ApplicationStatus is the pipeline stage of an application.
type ApplicationStatus string

const (
	StatusApplied       ApplicationStatus = "applied"
	StatusTechnicalTest ApplicationStatus = "technical_test"
	StatusInterview     ApplicationStatus = "interview"
	StatusOffering      ApplicationStatus = "offering"
	StatusRejected      ApplicationStatus = "rejected"
	StatusWithdrawn     ApplicationStatus = "withdrawn"
	StatusNoResponse    ApplicationStatus = "no_response"
)

// ApplicationStatuses lists every status in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	StatusApplied,
	StatusTechnicalTest,
	StatusInterview,
	StatusOffering,
	StatusRejected,
	StatusWithdrawn,
	StatusNoResponse,
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusTechnicalTest, StatusInterview, StatusOffering,
		StatusRejected, StatusWithdrawn, StatusNoResponse:
		return true
	}
	return false
}

func (s ApplicationStatus) DisplayName() string {
	switch s {
	case StatusApplied:
		return "Applied"
	case StatusTechnicalTest:
		return "Technical Test"
	case StatusInterview:
		return "Interview"
	case StatusOffering:
		return "Offering"
	case StatusRejected:
		return "Rejected"
	case StatusWithdrawn:
		return "Withdrawn"
	case StatusNoResponse:
		return "No Response"
	}
	return string(s)
}

// Color is a presentation hint for badges.
func (s ApplicationStatus) Color() string {
	switch s {
	case StatusApplied:
		return "blue"
	case StatusTechnicalTest:
		return "yellow"
	case StatusInterview:
		return "purple"
	case StatusOffering:
		return "green"
	case StatusRejected:
		return "red"
	case StatusWithdrawn:
		return "gray"
	case StatusNoResponse:
		return "orange"
	}
	return "gray"
}

// IsClosed reports whether the application has left the active pipeline.
func (s ApplicationStatus) IsClosed() bool {
	return s == StatusRejected || s == StatusOffering || s == StatusWithdrawn
}

func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	s := ApplicationStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown application status %q", raw)
	}
	return s, nil
}

func (s ApplicationStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown application status %q", string(s))
	}
	return []byte(s), nil
}

func (s *ApplicationStatus) UnmarshalText(b []byte) error {
	v, err := ParseApplicationStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
