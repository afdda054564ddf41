package gateway

import (
	"fmt"
	"time"

	"trackra-engine/internal/domain"
)

type healthResponse struct {
	OK bool `json:"ok"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	APIKey *string `json:"apiKey"`
	Error  *string `json:"error"`
}

type createResponse struct {
	ID string `json:"id"`
}

// errorEnvelope is checked on every response; the backend reports
// application-level failures with HTTP 200 and an "error" field.
type errorEnvelope struct {
	Error *string `json:"error"`
}

type createApplicationRequest struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	AppliedAt   string `json:"appliedAt"`
	Source      string `json:"source"`
	SalaryRange string `json:"salaryRange"`
	Location    string `json:"location"`
	URL         string `json:"url"`
}

type createActivityRequest struct {
	ApplicationID string              `json:"applicationId"`
	Type          domain.ActivityType `json:"type"`
	OccurredAt    string              `json:"occurredAt"`
	Note          string              `json:"note"`
}

type updateStatusRequest struct {
	ApplicationID string                   `json:"applicationId"`
	Status        domain.ApplicationStatus `json:"status"`
}

type deleteApplicationRequest struct {
	ApplicationID string `json:"applicationId"`
}

type wireActivity struct {
	ID            string              `json:"id"`
	ApplicationID string              `json:"applicationId"`
	Type          domain.ActivityType `json:"type"`
	OccurredAt    string              `json:"occurredAt"`
	Note          string              `json:"note"`
}

type wireApplication struct {
	ID                    string                   `json:"id"`
	Role                  string                   `json:"role"`
	Company               string                   `json:"company"`
	AppliedAt             string                   `json:"appliedAt"`
	Source                string                   `json:"source"`
	SalaryRange           string                   `json:"salaryRange"`
	Location              string                   `json:"location"`
	URL                   string                   `json:"url"`
	CreatedAt             string                   `json:"createdAt"`
	Status                domain.ApplicationStatus `json:"status"`
	DaysSinceLastActivity int                      `json:"daysSinceLastActivity"`
	Activities            []wireActivity           `json:"activities"`
}

type wireNotification struct {
	ID            string                  `json:"id"`
	ApplicationID string                  `json:"applicationId"`
	Type          domain.NotificationType `json:"type"`
	OccurredAt    string                  `json:"occurredAt"`
	Note          string                  `json:"note"`
}

// parseTimestamp accepts ISO-8601 datetimes with or without fractional
// seconds.
func parseTimestamp(field, raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot decode %s date string %q", field, raw)
}

func (w wireActivity) toDomain() (domain.Activity, error) {
	at, err := parseTimestamp("occurredAt", w.OccurredAt)
	if err != nil {
		return domain.Activity{}, err
	}
	if !w.Type.Valid() {
		return domain.Activity{}, fmt.Errorf("activity %s: missing type", w.ID)
	}
	return domain.Activity{
		ID:            w.ID,
		ApplicationID: w.ApplicationID,
		Type:          w.Type,
		OccurredAt:    at,
		Note:          w.Note,
	}, nil
}

func (w wireApplication) toDomain() (domain.Application, error) {
	appliedAt, err := parseTimestamp("appliedAt", w.AppliedAt)
	if err != nil {
		return domain.Application{}, err
	}
	createdAt, err := parseTimestamp("createdAt", w.CreatedAt)
	if err != nil {
		return domain.Application{}, err
	}
	if !w.Status.Valid() {
		return domain.Application{}, fmt.Errorf("application %s: missing status", w.ID)
	}
	acts := make([]domain.Activity, 0, len(w.Activities))
	for _, wa := range w.Activities {
		a, err := wa.toDomain()
		if err != nil {
			return domain.Application{}, fmt.Errorf("application %s: %w", w.ID, err)
		}
		acts = append(acts, a)
	}
	return domain.Application{
		ID:                    w.ID,
		Role:                  w.Role,
		Company:               w.Company,
		AppliedAt:             appliedAt,
		Source:                w.Source,
		SalaryRange:           w.SalaryRange,
		Location:              w.Location,
		URL:                   w.URL,
		CreatedAt:             createdAt,
		Status:                w.Status,
		DaysSinceLastActivity: w.DaysSinceLastActivity,
		Activities:            acts,
	}, nil
}

func (w wireNotification) toDomain() (domain.AppNotification, error) {
	at, err := parseTimestamp("occurredAt", w.OccurredAt)
	if err != nil {
		return domain.AppNotification{}, err
	}
	if !w.Type.Valid() {
		return domain.AppNotification{}, fmt.Errorf("notification %s: missing type", w.ID)
	}
	return domain.AppNotification{
		ID:            w.ID,
		ApplicationID: w.ApplicationID,
		Type:          w.Type,
		OccurredAt:    at,
		Note:          w.Note,
	}, nil
}
