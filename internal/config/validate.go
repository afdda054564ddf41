package config

import (
	"fmt"
	"net/url"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong
// with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.API.BaseURL = strings.TrimSpace(out.API.BaseURL)
	out.App.DataDir = strings.TrimSpace(out.App.DataDir)
	out.Keychain.Service = strings.TrimSpace(out.Keychain.Service)
	if out.Keychain.Service == "" {
		out.Keychain.Service = Default().Keychain.Service
		res.addWarn("keychain.service is empty; using %q", out.Keychain.Service)
	}

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.API.BaseURL == "" {
		res.addErr("api.base_url is required")
	} else if u, err := url.Parse(out.API.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		res.addErr("api.base_url must be an absolute http(s) URL, got %q", out.API.BaseURL)
	} else if u.Scheme == "http" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		res.addWarn("api.base_url uses plain http; the api key travels in the query string")
	}

	if out.API.RequestTimeoutSeconds <= 0 {
		res.addErr("api.request_timeout_seconds must be > 0")
	}
	if out.API.ResourceTimeoutSeconds <= 0 {
		res.addErr("api.resource_timeout_seconds must be > 0")
	} else if out.API.ResourceTimeoutSeconds < out.API.RequestTimeoutSeconds {
		res.addWarn("api.resource_timeout_seconds (%d) is below api.request_timeout_seconds (%d)",
			out.API.ResourceTimeoutSeconds, out.API.RequestTimeoutSeconds)
	}

	// polling sanity
	if out.Polling.NotificationsSeconds <= 0 {
		res.addErr("polling.notifications_seconds must be > 0")
	} else if out.Polling.NotificationsSeconds < 30 {
		res.addWarn("polling.notifications_seconds is very low (%d) and may cause rate limits.", out.Polling.NotificationsSeconds)
	}

	if out.Reminders.LeadHours < 0 {
		res.addErr("reminders.lead_hours must be >= 0")
	} else if out.Reminders.Enabled && out.Reminders.LeadHours > 24*14 {
		res.addWarn("reminders.lead_hours is %d; reminders will fire more than two weeks early.", out.Reminders.LeadHours)
	}

	if out.Posting.RequestsPerSecond <= 0 {
		res.addErr("posting.requests_per_second must be > 0")
	}
	if out.Posting.Burst <= 0 {
		res.addErr("posting.burst must be > 0")
	}
	if out.Posting.TimeoutSeconds <= 0 {
		res.addErr("posting.timeout_seconds must be > 0")
	}

	return out, res
}
