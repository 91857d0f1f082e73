package scheduler

import (
	"fmt"
	"strings"
)

// Config is the validated initialization input for one booking session.
// Build it with NewConfig; the zero value is not usable.
type Config struct {
	ClientID        string
	ResourceID      string
	ResourceGroupID string
	Environment     Environment
	DemoMode        bool
}

// ConfigInput is the raw, unvalidated form of Config.
type ConfigInput struct {
	ClientID        string
	ResourceID      string
	ResourceGroupID string
	Environment     string
	DemoMode        bool
}

// NewConfig validates in and returns a Config. Every failure wraps ErrConfig
// and happens before any session state exists.
func NewConfig(in ConfigInput) (Config, error) {
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		return Config{}, fmt.Errorf("%w: clientId is required", ErrConfig)
	}
	if err := validateTarget(in.ResourceID, in.ResourceGroupID); err != nil {
		return Config{}, err
	}
	env, err := ParseEnvironment(in.Environment)
	if err != nil {
		return Config{}, err
	}
	return Config{
		ClientID:        clientID,
		ResourceID:      strings.TrimSpace(in.ResourceID),
		ResourceGroupID: strings.TrimSpace(in.ResourceGroupID),
		Environment:     env,
		DemoMode:        in.DemoMode,
	}, nil
}

// BaseURL is the API base for the configured environment.
func (c Config) BaseURL() string {
	return c.Environment.BaseURL()
}

// Query builds an availability query for the configured target.
func (c Config) Query() AvailabilityQuery {
	return AvailabilityQuery{
		ResourceID:      c.ResourceID,
		ResourceGroupID: c.ResourceGroupID,
	}
}
