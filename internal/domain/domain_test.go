package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFormatDateKeepsCalendarDayInAnyZone(t *testing.T) {
	zones := []string{"UTC", "Asia/Jakarta", "America/Los_Angeles", "Pacific/Kiritimati", "Pacific/Pago_Pago"}
	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Skipf("tzdata unavailable: %v", err)
		}
		for _, hour := range []int{0, 12, 23} {
			d := time.Date(2026, 3, 15, hour, 30, 0, 0, loc)
			if got := FormatDate(d); got != "2026-03-15" {
				t.Fatalf("%s %02d:30: got %s", name, hour, got)
			}
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if FormatDate(d) != "2026-03-15" {
		t.Fatalf("round trip changed the day: %s", FormatDate(d))
	}
	if _, err := ParseDate("15/03/2026"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}

func TestEnumsRejectUnknownValues(t *testing.T) {
	var s ApplicationStatus
	if err := json.Unmarshal([]byte(`"ghosted"`), &s); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
	var a ActivityType
	if err := json.Unmarshal([]byte(`"coffee_chat"`), &a); err == nil {
		t.Fatalf("expected unknown activity type to fail")
	}
	var n NotificationType
	if err := json.Unmarshal([]byte(`"offer"`), &n); err == nil {
		t.Fatalf("expected unknown notification type to fail")
	}
	if err := json.Unmarshal([]byte(`"take_home_test"`), &a); err != nil || a != ActivityTakeHomeTest {
		t.Fatalf("decode take_home_test: %v %q", err, a)
	}
}

func TestSortOrderCoversEveryType(t *testing.T) {
	for _, typ := range ActivityTypes {
		if typ.SortOrder() <= 0 {
			t.Fatalf("%s has no sort order", typ)
		}
	}
	if ActivityOfferReceived.SortOrder() != 100 || ActivityNote.SortOrder() != 10 {
		t.Fatalf("unexpected bounds")
	}
}

func TestCloneDoesNotShareActivities(t *testing.T) {
	a := Application{ID: "1", Activities: []Activity{{ID: "x"}}}
	b := a.Clone()
	b.Activities[0].ID = "y"
	if a.Activities[0].ID != "x" {
		t.Fatalf("clone shares activity backing array")
	}
}

func TestApplicationFieldsValidate(t *testing.T) {
	if err := (ApplicationFields{}).Validate(); err == nil {
		t.Fatalf("expected missing fields to fail")
	}
	ok := ApplicationFields{Role: "SRE", Company: "Acme", AppliedAt: time.Now()}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
