package domain

import (
	"errors"
	"strings"
	"time"
)

type Application struct {
	ID                    string            `json:"id"`
	Role                  string            `json:"role"`
	Company               string            `json:"company"`
	AppliedAt             time.Time         `json:"appliedAt"`
	Source                string            `json:"source"`
	SalaryRange           string            `json:"salaryRange"`
	Location              string            `json:"location"`
	URL                   string            `json:"url"`
	CreatedAt             time.Time         `json:"createdAt"`
	Status                ApplicationStatus `json:"status"`
	DaysSinceLastActivity int               `json:"daysSinceLastActivity"`
	Activities            []Activity        `json:"activities"`
}

// Clone returns a copy that shares no slices with a.
func (a Application) Clone() Application {
	out := a
	if a.Activities != nil {
		out.Activities = make([]Activity, len(a.Activities))
		copy(out.Activities, a.Activities)
	}
	return out
}

// CloneApplications deep-copies a collection.
func CloneApplications(in []Application) []Application {
	if in == nil {
		return nil
	}
	out := make([]Application, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}

// ApplicationFields are the user-entered values of a new application.
type ApplicationFields struct {
	Role        string    `json:"role"`
	Company     string    `json:"company"`
	AppliedAt   time.Time `json:"appliedAt"`
	Source      string    `json:"source"`
	SalaryRange string    `json:"salaryRange"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
}

// Validate checks what the add form requires before submitting.
func (f ApplicationFields) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Role) == "" {
		errs = append(errs, errors.New("role is required"))
	}
	if strings.TrimSpace(f.Company) == "" {
		errs = append(errs, errors.New("company is required"))
	}
	if f.AppliedAt.IsZero() {
		errs = append(errs, errors.New("appliedAt is required"))
	}
	return errors.Join(errs...)
}
