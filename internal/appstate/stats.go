package appstate

import (
	"math"
	"slices"

	"trackra-engine/internal/domain"
)

type StatusCount struct {
	Status domain.ApplicationStatus `json:"status"`
	Label  string                   `json:"label"`
	Count  int                      `json:"count"`
}

// Stats is the dashboard summary of the collection.
type Stats struct {
	Total       int           `json:"total"`
	InProgress  int           `json:"inProgress"`
	Offers      int           `json:"offers"`
	FollowUps   int           `json:"followUps"`
	SuccessRate float64       `json:"successRate"`
	ByStatus    []StatusCount `json:"byStatus"`
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ComputeStats(e.apps)
}

// ComputeStats summarizes apps. SuccessRate is offers over total as a
// percentage rounded to one decimal. ByStatus lists only statuses that
// occur, largest first, ties in status order.
func ComputeStats(apps []domain.Application) Stats {
	s := Stats{Total: len(apps), ByStatus: []StatusCount{}}
	counts := make(map[domain.ApplicationStatus]int)
	for _, a := range apps {
		counts[a.Status]++
		if !a.Status.IsClosed() {
			s.InProgress++
		}
		switch a.Status {
		case domain.StatusOffering:
			s.Offers++
		case domain.StatusNoResponse:
			s.FollowUps++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = math.Round(float64(s.Offers)/float64(s.Total)*1000) / 10
	}
	for _, st := range domain.ApplicationStatuses {
		if n := counts[st]; n > 0 {
			s.ByStatus = append(s.ByStatus, StatusCount{Status: st, Label: st.DisplayName(), Count: n})
		}
	}
	slices.SortStableFunc(s.ByStatus, func(a, b StatusCount) int {
		return b.Count - a.Count
	})
	return s
}
