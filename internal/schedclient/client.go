// Package schedclient is the HTTP gateway to the remote scheduling service:
// token exchange, availability lookup and booking creation.
package schedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/pkg/logging"
)

const (
	defaultTimeout  = 20 * time.Second
	grantType       = "client_id_grant"
	slotDurationMin = "60"
	maxErrorBody    = 300
)

var tracer = otel.Tracer("sched.internal.schedclient")

// Config configures the remote client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.SchedulerMetrics
}

// Client implements scheduler.Gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.SchedulerMetrics
}

var _ scheduler.Gateway = (*Client)(nil)

// New creates a remote scheduling client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: schedclient: base URL is required", scheduler.ErrConfig)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: schedclient: invalid base URL %q", scheduler.ErrConfig, base)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		logger:     logger.Component("schedclient"),
		metrics:    cfg.Metrics,
	}, nil
}

// Name returns "remote".
func (c *Client) Name() string { return "remote" }

// ObtainToken performs the client-id token exchange.
// POST /auth/token (form: client_id, grant_type)
func (c *Client) ObtainToken(ctx context.Context, clientID string) (token scheduler.AccessToken, err error) {
	ctx, span := tracer.Start(ctx, "sched.auth_token")
	defer func() { endSpan(span, err) }()
	defer c.observe("auth_token", time.Now(), &err)

	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("grant_type", grantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", scheduler.ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	status, body, err := c.send(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", scheduler.ErrAuth, err)
	}
	if !isSuccess(status) {
		return "", fmt.Errorf("%w: status %d: %s", scheduler.ErrAuth, status, truncate(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", scheduler.ErrAuth, err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", fmt.Errorf("%w: response carried no access_token", scheduler.ErrAuth)
	}
	return scheduler.AccessToken(out.AccessToken), nil
}

// FetchAvailability lists availability windows for a resource or group.
// GET /availabilities?start=&end=&duration=60&resource_id|resource_group_id=
func (c *Client) FetchAvailability(ctx context.Context, token scheduler.AccessToken, q scheduler.AvailabilityQuery) (windows []scheduler.AvailabilityWindow, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sched.fetch_availability")
	defer func() { endSpan(span, err) }()
	defer c.observe("fetch_availability", time.Now(), &err)

	params := url.Values{}
	params.Set("start", q.Start.UTC().Format(time.RFC3339))
	params.Set("end", q.End.UTC().Format(time.RFC3339))
	params.Set("duration", slotDurationMin)
	if q.ResourceID != "" {
		params.Set("resource_id", q.ResourceID)
		span.SetAttributes(attribute.String("sched.resource_id", q.ResourceID))
	} else {
		params.Set("resource_group_id", q.ResourceGroupID)
		span.SetAttributes(attribute.String("sched.resource_group_id", q.ResourceGroupID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/availabilities?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", scheduler.ErrAvailabilityFetch, err)
	}
	c.authorize(req, token)

	status, body, err := c.send(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scheduler.ErrAvailabilityFetch, err)
	}
	if !isSuccess(status) {
		c.logger.Warn("availability fetch non-2xx response", "status", status, "body", truncate(body))
		return nil, fmt.Errorf("%w: status %d: %s", scheduler.ErrAvailabilityFetch, status, truncate(body))
	}

	var out availabilityResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", scheduler.ErrAvailabilityFetch, err)
		}
	}

	windows = make([]scheduler.AvailabilityWindow, 0, len(out.Data))
	for _, w := range out.Data {
		start, err := parseInstant(w.Start)
		if err != nil {
			c.logger.Warn("dropping availability window", "reason", err.Error())
			continue
		}
		end, err := parseInstant(w.End)
		if err != nil {
			c.logger.Warn("dropping availability window", "reason", err.Error())
			continue
		}
		win := scheduler.AvailabilityWindow{Start: start, End: end, Resource: w.Resource.toDomain()}
		if !win.Valid() {
			c.logger.Warn("dropping availability window", "reason", "start not before end", "start", w.Start, "end", w.End)
			continue
		}
		windows = append(windows, win)
	}
	span.SetAttributes(attribute.Int("sched.windows", len(windows)))
	return windows, nil
}

// CreateBooking submits a booking with status "requested".
// POST /bookings
func (c *Client) CreateBooking(ctx context.Context, token scheduler.AccessToken, req scheduler.BookingRequest) (conf *scheduler.BookingConfirmation, err error) {
	ctx, span := tracer.Start(ctx, "sched.create_booking")
	defer func() { endSpan(span, err) }()
	defer c.observe("create_booking", time.Now(), &err)
	span.SetAttributes(attribute.String("sched.resource_id", req.ResourceID))

	status := req.Status
	if status == "" {
		status = scheduler.BookingStatusRequested
	}
	payload, err := json.Marshal(bookingBody{
		Start:      formatWireTime(req.StartUTC),
		End:        formatWireTime(req.EndUTC),
		Status:     status,
		ResourceID: req.ResourceID,
		FirstName:  strings.TrimSpace(req.Contact.FirstName),
		LastName:   strings.TrimSpace(req.Contact.LastName),
		Email:      strings.TrimSpace(req.Contact.Email),
	})
	if err != nil {
		return nil, &scheduler.BookingError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewReader(payload))
	if err != nil {
		return nil, &scheduler.BookingError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq, token)

	code, body, err := c.send(httpReq)
	if err != nil {
		return nil, &scheduler.BookingError{Err: err}
	}
	if !isSuccess(code) {
		c.logger.Warn("booking non-2xx response", "status", code, "body", truncate(body))
		return nil, &scheduler.BookingError{Status: code, Message: remoteMessage(body)}
	}

	var out bookingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &scheduler.BookingError{Status: code, Err: fmt.Errorf("decode response: %w", err)}
	}
	return c.toConfirmation(out, req), nil
}

// toConfirmation fills gaps in the service response from the request.
func (c *Client) toConfirmation(out bookingResponse, req scheduler.BookingRequest) *scheduler.BookingConfirmation {
	conf := &scheduler.BookingConfirmation{
		ID:       string(out.ID),
		Start:    req.StartUTC.UTC(),
		End:      req.EndUTC.UTC(),
		Status:   out.Status,
		Resource: out.Resource.toDomain(),
	}
	if out.Start != "" {
		if t, err := parseInstant(out.Start); err == nil {
			conf.Start = t
		} else {
			c.logger.Warn("booking response start unparseable", "value", out.Start)
		}
	}
	if out.End != "" {
		if t, err := parseInstant(out.End); err == nil {
			conf.End = t
		} else {
			c.logger.Warn("booking response end unparseable", "value", out.End)
		}
	}
	if conf.Status == "" {
		conf.Status = scheduler.BookingStatusRequested
	}
	if conf.Resource.ID == "" {
		conf.Resource.ID = req.ResourceID
	}
	return conf
}

func (c *Client) authorize(req *http.Request, token scheduler.AccessToken) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(token))
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) observe(call string, started time.Time, err *error) {
	c.metrics.ObserveRequest(call, *err, time.Since(started).Seconds())
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

func truncate(body []byte) string {
	msg := string(body)
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// IsRemoteRejection reports whether err came from a non-2xx booking response.
func IsRemoteRejection(err error) bool {
	var be *scheduler.BookingError
	return errors.As(err, &be) && be.Status != 0
}
