package schedclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

// wireTimeLayout is the zone-less UTC format the bookings endpoint expects.
const wireTimeLayout = "2006-01-02T15:04:05"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// flexID accepts both string and numeric ids.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

type wireResource struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Pic         string `json:"pic"`
	Description string `json:"description"`
}

func (r wireResource) toDomain() scheduler.Resource {
	return scheduler.Resource{
		ID:          string(r.ID),
		Name:        r.Name,
		PictureURL:  r.Pic,
		Description: r.Description,
	}
}

type wireWindow struct {
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Resource wireResource `json:"resource"`
}

type availabilityResponse struct {
	Data []wireWindow `json:"data"`
}

type bookingBody struct {
	Start      string `json:"start"`
	End        string `json:"end"`
	Status     string `json:"status"`
	ResourceID string `json:"resource_id"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Email      string `json:"email,omitempty"`
}

type bookingResponse struct {
	ID       flexID       `json:"id"`
	Start    string       `json:"start"`
	End      string       `json:"end"`
	Status   string       `json:"status"`
	Resource wireResource `json:"resource"`
}

// errorResponse covers the shapes the service uses for failures.
type errorResponse struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// parseInstant accepts RFC3339 or the zone-less layout, which is UTC.
func parseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(wireTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse instant %q: %w", s, err)
	}
	return t, nil
}

func formatWireTime(t time.Time) string {
	return t.UTC().Format(wireTimeLayout)
}

// remoteMessage pulls a human-readable message out of an error body.
func remoteMessage(body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(er.Message); msg != "" {
		return msg
	}
	if len(er.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(er.Error, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(er.Error, &nested); err == nil {
		return strings.TrimSpace(nested.Message)
	}
	return ""
}
