package demo

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/scheddev/sched-go/internal/http/middleware"
	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/pkg/logging"
)

const (
	clientIDGrant = "client_id_grant"
	tokenTTL      = time.Hour
	zonelessTime  = "2006-01-02T15:04:05"
)

// MockService is an in-memory scheduling service speaking the same wire
// protocol as the hosted one. Bookings live only as long as the process.
type MockService struct {
	secret  []byte
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics
	now     func() time.Time

	mu       sync.Mutex
	bookings map[string]bookingRecord
}

type bookingRecord struct {
	ID         string    `json:"id"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Status     string    `json:"status"`
	ResourceID string    `json:"-"`
	Resource   wireRes   `json:"resource"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type wireRes struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Pic         string `json:"pic,omitempty"`
	Description string `json:"description,omitempty"`
}

type wireSlot struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Resource wireRes `json:"resource"`
}

type bookingPayload struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	ResourceID string `json:"resource_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

// MockOption configures a MockService.
type MockOption func(*MockService)

// WithServiceMetrics records every handled call on sm under the same call
// names the remote client uses.
func WithServiceMetrics(sm *metrics.SchedulerMetrics) MockOption {
	return func(s *MockService) { s.metrics = sm }
}

// NewMockService creates a mock service signing tokens with secret.
func NewMockService(secret string, logger *logging.Logger, opts ...MockOption) *MockService {
	if logger == nil {
		logger = logging.Default()
	}
	s := &MockService{
		secret:   []byte(secret),
		logger:   logger.Component("mock-service"),
		now:      time.Now,
		bookings: make(map[string]bookingRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the service endpoints, relative to the API version prefix.
func (s *MockService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(s.observe("auth_token")).Post("/auth/token", s.IssueToken)
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.BearerJWT(string(s.secret)))
		authed.With(s.observe("fetch_availability")).Get("/availabilities", s.ListAvailabilities)
		authed.With(s.observe("create_booking")).Post("/bookings", s.CreateBooking)
	})
	return r
}

// observe counts a handled call as an error when it answered with 4xx or 5xx.
func (s *MockService) observe(call string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			var err error
			if ww.Status() >= http.StatusBadRequest {
				err = errors.New(http.StatusText(ww.Status()))
			}
			s.metrics.ObserveRequest(call, err, time.Since(started).Seconds())
		})
	}
}

// IssueToken handles POST /auth/token.
func (s *MockService) IssueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid form body"})
		return
	}
	clientID := strings.TrimSpace(r.PostForm.Get("client_id"))
	if r.PostForm.Get("grant_type") != clientIDGrant || clientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "unsupported grant or missing client_id"})
		return
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		s.logger.Error("failed to sign access token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "failed to issue token"})
		return
	}
	s.logger.Info("access token issued", "client_id", clientID)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "Bearer",
		"expires_in":   int(tokenTTL.Seconds()),
	})
}

// ListAvailabilities handles GET /availabilities.
func (s *MockService) ListAvailabilities(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	start, errStart := parseWireTime(params.Get("start"))
	end, errEnd := parseWireTime(params.Get("end"))
	if errStart != nil || errEnd != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "start and end must be RFC3339 timestamps"})
		return
	}
	q := scheduler.AvailabilityQuery{
		ResourceID:      strings.TrimSpace(params.Get("resource_id")),
		ResourceGroupID: strings.TrimSpace(params.Get("resource_group_id")),
		Start:           start,
		End:             end,
	}
	if err := q.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	data := make([]wireSlot, 0)
	for _, win := range Windows(q) {
		if _, taken := s.bookings[bookingKey(win.Resource.ID, win.Start)]; taken {
			continue
		}
		data = append(data, wireSlot{
			Start:    win.Start.UTC().Format(time.RFC3339),
			End:      win.End.UTC().Format(time.RFC3339),
			Resource: toWireRes(win.Resource),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// CreateBooking handles POST /bookings.
func (s *MockService) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var body bookingPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid JSON body"})
		return
	}
	start, end, err := body.validate()
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
		return
	}

	status := body.Status
	if status == "" {
		status = scheduler.BookingStatusRequested
	}
	key := bookingKey(body.ResourceID, start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.bookings[key]; taken {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "This time is no longer available."})
		return
	}
	rec := bookingRecord{
		ID:         uuid.NewString(),
		Start:      start.Format(zonelessTime),
		End:        end.Format(zonelessTime),
		Status:     status,
		ResourceID: body.ResourceID,
		Resource:   toWireRes(resourceByID(body.ResourceID)),
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		Email:      body.Email,
		CreatedAt:  s.now().UTC(),
	}
	s.bookings[key] = rec
	if claims, ok := httpmiddleware.ClientClaimsFromContext(r.Context()); ok {
		s.logger.Info("booking created", "booking_id", rec.ID, "resource_id", rec.ResourceID, "client_id", claims.Subject)
	}
	writeJSON(w, http.StatusCreated, rec)
}

// BookingCount returns the number of bookings held in memory.
func (s *MockService) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (b bookingPayload) validate() (time.Time, time.Time, error) {
	if strings.TrimSpace(b.ResourceID) == "" {
		return time.Time{}, time.Time{}, errors.New("resource_id is required")
	}
	start, err := parseWireTime(b.Start)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start is not a valid timestamp")
	}
	end, err := parseWireTime(b.End)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end is not a valid timestamp")
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("start must be before end")
	}
	return start, end, nil
}

func parseWireTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(zonelessTime, s, time.UTC)
}

func bookingKey(resourceID string, start time.Time) string {
	return resourceID + "|" + start.UTC().Format(time.RFC3339)
}

func toWireRes(r scheduler.Resource) wireRes {
	return wireRes{ID: r.ID, Name: r.Name, Pic: r.PictureURL, Description: r.Description}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
