// Package posting previews a job posting URL so a new application can be
// pre-filled with its role, company and location.
package posting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trackra-engine/internal/domain"
)

// maxBody caps how much of a posting page is parsed.
const maxBody = 4 << 20

// Hint is what could be read from a posting page. Empty fields were not
// found.
type Hint struct {
	URL      string `json:"url"`
	Role     string `json:"role"`
	Company  string `json:"company"`
	Location string `json:"location"`
	WorkMode string `json:"workMode,omitempty"`
	Source   string `json:"source"`
}

// Fields turns the hint into the add-application form values.
func (h Hint) Fields(appliedAt time.Time) domain.ApplicationFields {
	loc := h.Location
	if h.WorkMode != "" && !strings.Contains(strings.ToLower(loc), strings.ToLower(h.WorkMode)) {
		if loc == "" {
			loc = h.WorkMode
		} else {
			loc = loc + " (" + h.WorkMode + ")"
		}
	}
	return domain.ApplicationFields{
		Role:      h.Role,
		Company:   h.Company,
		AppliedAt: appliedAt,
		Source:    h.Source,
		Location:  loc,
		URL:       h.URL,
	}
}

type Options struct {
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	HTTPClient        *http.Client
	UserAgent         string
}

type Previewer struct {
	hc      *http.Client
	limiter *HostLimiter
	ua      string
}

func New(opts Options) *Previewer {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Trackra/1.0 (+local)"
	}
	return &Previewer{
		hc:      hc,
		limiter: NewHostLimiter(opts.RequestsPerSecond, opts.Burst),
		ua:      ua,
	}
}

// Preview fetches raw and extracts what it can. Role falls back from
// og:title to the first h1 to the page title; company from og:site_name to
// the host.
func (p *Previewer) Preview(ctx context.Context, raw string) (Hint, error) {
	canon, err := Canonicalize(raw)
	if err != nil {
		return Hint{}, err
	}
	u, _ := url.Parse(canon)
	hint := Hint{URL: canon, Source: sourceForHost(u.Host)}

	if err := p.limiter.WaitURL(ctx, canon); err != nil {
		return hint, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, canon, nil)
	if err != nil {
		return hint, err
	}
	req.Header.Set("User-Agent", p.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := p.hc.Do(req)
	if err != nil {
		return hint, fmt.Errorf("posting get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return hint, fmt.Errorf("posting status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return hint, fmt.Errorf("posting parse html: %w", err)
	}

	siteName := meta(doc, "og:site_name")
	hint.Role = findRole(doc, siteName)
	hint.Company = siteName
	if hint.Company == "" || strings.EqualFold(hint.Company, hint.Source) {
		hint.Company = companyFromHost(u)
	}
	hint.Location = findLocation(doc)
	hint.WorkMode = InferWorkMode(hint.Location, hint.Role, meta(doc, "og:description"))
	return hint, nil
}

func meta(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)
	v, _ := doc.Find(sel).First().Attr("content")
	return CleanText(v)
}

func findRole(doc *goquery.Document, siteName string) string {
	candidates := []string{
		meta(doc, "og:title"),
		CleanText(doc.Find("h1").First().Text()),
		CleanText(doc.Find("title").First().Text()),
	}
	for _, c := range candidates {
		if c = trimSiteSuffix(c, siteName); c != "" {
			return c
		}
	}
	return ""
}

// trimSiteSuffix drops " - Acme Careers" or " | Acme" tails from titles.
func trimSiteSuffix(title, siteName string) string {
	for _, sep := range []string{" | ", " - ", " – ", " at "} {
		i := strings.LastIndex(title, sep)
		if i <= 0 {
			continue
		}
		tail := strings.ToLower(title[i+len(sep):])
		if (siteName != "" && strings.Contains(tail, strings.ToLower(siteName))) ||
			strings.Contains(tail, "careers") || strings.Contains(tail, "jobs") {
			return strings.TrimSpace(title[:i])
		}
	}
	return title
}
