// Package gateway talks to the Trackra backend: one endpoint multiplexed by a
// "path" query parameter, authenticated with an "apiKey" query parameter.
// Calls are never retried or cached.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trackra-engine/internal/domain"
)

const (
	pathHealth            = "health"
	pathLogin             = "auth/login"
	pathApplications      = "applications"
	pathApplicationStatus = "applications/status"
	pathApplicationDelete = "applications/delete"
	pathActivities        = "activities"
	pathNotifications     = "activities/notifications"
)

// Client is what the sync engine, session and notification scheduler need
// from the backend.
type Client interface {
	CheckHealth(ctx context.Context) (bool, error)
	Login(ctx context.Context, email, password string) (string, error)
	FetchApplications(ctx context.Context, token string) ([]domain.Application, error)
	CreateApplication(ctx context.Context, token string, fields domain.ApplicationFields) (string, error)
	CreateActivity(ctx context.Context, token, applicationID string, typ domain.ActivityType, occurredAt time.Time, note string) (string, error)
	UpdateStatus(ctx context.Context, token, applicationID string, status domain.ApplicationStatus) error
	DeleteApplication(ctx context.Context, token, applicationID string) error
	FetchNotifications(ctx context.Context, token string) ([]domain.AppNotification, error)
}

type Options struct {
	// RequestTimeout bounds the wait for response headers.
	RequestTimeout time.Duration
	// ResourceTimeout bounds the whole exchange including the body.
	ResourceTimeout time.Duration
	// HTTPClient overrides the client built from the timeouts.
	HTTPClient *http.Client
	UserAgent  string
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, opts Options) *HTTPClient {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ResourceTimeout <= 0 {
		opts.ResourceTimeout = 60 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = opts.RequestTimeout
		hc = &http.Client{Transport: tr, Timeout: opts.ResourceTimeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "Trackra/1.0 (+local)"
	}
	return &HTTPClient{
		baseURL:    strings.TrimSpace(baseURL),
		httpClient: hc,
		userAgent:  ua,
	}
}

func (c *HTTPClient) CheckHealth(ctx context.Context) (bool, error) {
	var out healthResponse
	if err := c.doJSON(ctx, "checkHealth", http.MethodGet, pathHealth, "", false, nil, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (string, error) {
	const op = "login"
	var out loginResponse
	body := loginRequest{Email: email, Password: password}
	if err := c.doJSON(ctx, op, http.MethodPost, pathLogin, "", false, body, &out); err != nil {
		return "", err
	}
	if out.Error != nil && *out.Error != "" {
		return "", serverRejected(op, http.StatusOK, *out.Error)
	}
	if out.APIKey == nil || strings.TrimSpace(*out.APIKey) == "" {
		return "", serverRejected(op, http.StatusOK, "No API key returned")
	}
	return *out.APIKey, nil
}

func (c *HTTPClient) FetchApplications(ctx context.Context, token string) ([]domain.Application, error) {
	const op = "fetchApplications"
	var raw []wireApplication
	if err := c.doJSON(ctx, op, http.MethodGet, pathApplications, token, true, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Application, 0, len(raw))
	for _, w := range raw {
		app, err := w.toDomain()
		if err != nil {
			return nil, malformed(op, err)
		}
		out = append(out, app)
	}
	return out, nil
}

func (c *HTTPClient) CreateApplication(ctx context.Context, token string, fields domain.ApplicationFields) (string, error) {
	body := createApplicationRequest{
		Role:        fields.Role,
		Company:     fields.Company,
		AppliedAt:   domain.FormatDate(fields.AppliedAt),
		Source:      fields.Source,
		SalaryRange: fields.SalaryRange,
		Location:    fields.Location,
		URL:         fields.URL,
	}
	return c.create(ctx, "createApplication", pathApplications, token, body)
}

func (c *HTTPClient) CreateActivity(ctx context.Context, token, applicationID string, typ domain.ActivityType, occurredAt time.Time, note string) (string, error) {
	if !typ.Valid() {
		return "", invalidRequest("createActivity", errors.New("unknown activity type "+string(typ)))
	}
	body := createActivityRequest{
		ApplicationID: applicationID,
		Type:          typ,
		OccurredAt:    domain.FormatDate(occurredAt),
		Note:          note,
	}
	return c.create(ctx, "createActivity", pathActivities, token, body)
}

func (c *HTTPClient) UpdateStatus(ctx context.Context, token, applicationID string, status domain.ApplicationStatus) error {
	if !status.Valid() {
		return invalidRequest("updateStatus", errors.New("unknown status "+string(status)))
	}
	body := updateStatusRequest{ApplicationID: applicationID, Status: status}
	return c.doJSON(ctx, "updateStatus", http.MethodPost, pathApplicationStatus, token, true, body, nil)
}

func (c *HTTPClient) DeleteApplication(ctx context.Context, token, applicationID string) error {
	body := deleteApplicationRequest{ApplicationID: applicationID}
	return c.doJSON(ctx, "deleteApplication", http.MethodPost, pathApplicationDelete, token, true, body, nil)
}

func (c *HTTPClient) FetchNotifications(ctx context.Context, token string) ([]domain.AppNotification, error) {
	const op = "fetchNotifications"
	var raw []wireNotification
	if err := c.doJSON(ctx, op, http.MethodGet, pathNotifications, token, true, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.AppNotification, 0, len(raw))
	for _, w := range raw {
		n, err := w.toDomain()
		if err != nil {
			return nil, malformed(op, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *HTTPClient) create(ctx context.Context, op, path, token string, body any) (string, error) {
	var out createResponse
	if err := c.doJSON(ctx, op, http.MethodPost, path, token, true, body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", malformed(op, errors.New("response has no id"))
	}
	return out.ID, nil
}

func (c *HTTPClient) endpoint(path, token string, authed bool) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base url must be absolute: " + c.baseURL)
	}
	q := u.Query()
	q.Set("path", path)
	if authed {
		q.Set("apiKey", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *HTTPClient) doJSON(
	ctx context.Context,
	op, method, path, token string,
	authed bool,
	body any,
	out any,
) error {
	if authed && strings.TrimSpace(token) == "" {
		return unauthenticated(op)
	}
	target, err := c.endpoint(path, token, authed)
	if err != nil {
		return invalidRequest(op, err)
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return invalidRequest(op, err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return invalidRequest(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unreachable(op, scrubURL(err))
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return unreachable(op, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := envelopeError(payload)
		if msg == "" {
			msg = resp.Status
		}
		return serverRejected(op, resp.StatusCode, msg)
	}
	if msg := envelopeError(payload); msg != "" {
		return serverRejected(op, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return malformed(op, err)
	}
	return nil
}

func envelopeError(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil || env.Error == nil {
		return ""
	}
	return strings.TrimSpace(*env.Error)
}

// scrubURL drops the request URL from transport errors so the api key in the
// query string never reaches logs or the UI.
func scrubURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
