// Package rank holds the pure rules that order activities and applications:
// which activity is the most authoritative, which status it implies, and
// which application was active most recently.
package rank

import (
	"sort"
	"time"

	"trackra-engine/internal/domain"
)

// Derive maps an activity type to the status it implies, if any.
func Derive(t domain.ActivityType) (domain.ApplicationStatus, bool) {
	return t.AssociatedStatus()
}

// IsMoreAuthoritative reports whether candidate outranks current. A later
// calendar day wins; on the same day the higher sort order wins, and equal
// sort orders go to the candidate.
func IsMoreAuthoritative(candidate, current domain.Activity) bool {
	c, b := domain.Day(candidate.OccurredAt), domain.Day(current.OccurredAt)
	if c.After(b) {
		return true
	}
	if c.Equal(b) {
		return candidate.Type.SortOrder() >= current.Type.SortOrder()
	}
	return false
}

// MostAuthoritative returns the winning activity of acts, or false when acts
// is empty.
func MostAuthoritative(acts []domain.Activity) (domain.Activity, bool) {
	if len(acts) == 0 {
		return domain.Activity{}, false
	}
	best := acts[0]
	for _, a := range acts[1:] {
		if IsMoreAuthoritative(a, best) {
			best = a
		}
	}
	return best, true
}

// StatusUpdateFor decides whether logging candidate on an application whose
// status is current and whose prior timeline is prior should push a new
// status to the server.
func StatusUpdateFor(candidate domain.Activity, current domain.ApplicationStatus, prior []domain.Activity) (domain.ApplicationStatus, bool) {
	target, ok := Derive(candidate.Type)
	if !ok || target == current {
		return "", false
	}
	best, ok := MostAuthoritative(prior)
	if !ok {
		return target, true
	}
	if !IsMoreAuthoritative(candidate, best) {
		return "", false
	}
	return target, true
}

// LastActivityAt is the latest activity date of a, or its applied date when
// it has no activities.
func LastActivityAt(a domain.Application) time.Time {
	if len(a.Activities) == 0 {
		return a.AppliedAt
	}
	latest := a.Activities[0].OccurredAt
	for _, act := range a.Activities[1:] {
		if act.OccurredAt.After(latest) {
			latest = act.OccurredAt
		}
	}
	return latest
}

// ByRecentActivity returns a copy of apps ordered most recently active first.
// Ties keep their input order.
func ByRecentActivity(apps []domain.Application) []domain.Application {
	out := domain.CloneApplications(apps)
	sort.SliceStable(out, func(i, j int) bool {
		return LastActivityAt(out[i]).After(LastActivityAt(out[j]))
	})
	return out
}
