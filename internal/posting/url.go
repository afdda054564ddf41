package posting

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

// Canonicalize lowercases scheme and host, drops the fragment and tracking
// parameters, and sorts the query. LinkedIn URLs keep only currentJobId.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("url must be http or https: " + raw)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Host == "" {
		return "", errors.New("url has no host: " + raw)
	}
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" || lk == "trk" || lk == "refid" {
			q.Del(k)
		}
	}

	if strings.Contains(u.Host, "linkedin.com") {
		keep := url.Values{}
		if v := q.Get("currentJobId"); v != "" {
			keep.Set("currentJobId", v)
		}
		q = keep
	}

	// deterministic query
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sourceForHost names well-known job boards; anything else is reported by
// its host.
func sourceForHost(host string) string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch {
	case strings.HasSuffix(host, "linkedin.com"):
		return "LinkedIn"
	case strings.Contains(host, "greenhouse.io"):
		return "Greenhouse"
	case strings.Contains(host, "lever.co"):
		return "Lever"
	case strings.Contains(host, "myworkdayjobs.com"):
		return "Workday"
	case strings.Contains(host, "smartrecruiters.com"):
		return "SmartRecruiters"
	case strings.HasSuffix(host, "indeed.com"):
		return "Indeed"
	case strings.HasSuffix(host, "welcometothejungle.com"):
		return "Welcome to the Jungle"
	}
	return host
}

// companyFromHost guesses a company from a careers host such as
// careers.acme.com or jobs.lever.co/acme.
func companyFromHost(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if strings.Contains(host, "lever.co") || strings.Contains(host, "greenhouse.io") {
		seg := strings.Trim(u.Path, "/")
		if i := strings.IndexByte(seg, '/'); i >= 0 {
			seg = seg[:i]
		}
		return titleWord(seg)
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return titleWord(host)
	}
	return titleWord(parts[len(parts)-2])
}

func titleWord(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "-", " "))
	if s == "" {
		return ""
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
