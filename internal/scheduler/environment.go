package scheduler

import (
	"fmt"
	"strings"
)

// Environment selects which deployment of the scheduling service to call.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvStaging    Environment = "staging"
	EnvDev        Environment = "dev"
	EnvLocal      Environment = "local"
)

var environmentBaseURLs = map[Environment]string{
	EnvProduction: "https://api.sched.dev/v1",
	EnvStaging:    "https://staging-api.sched.dev/v1",
	EnvDev:        "https://staging-api.sched.dev/v1",
	EnvLocal:      "http://localhost:8080/v1",
}

// ParseEnvironment resolves a name to an Environment. Empty means production.
func ParseEnvironment(name string) (Environment, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EnvProduction, nil
	}
	env := Environment(name)
	if _, ok := environmentBaseURLs[env]; !ok {
		return "", fmt.Errorf("%w: invalid environment %q (want production, staging, dev or local)", ErrConfig, name)
	}
	return env, nil
}

// BaseURL returns the API base URL for the environment.
func (e Environment) BaseURL() string {
	return environmentBaseURLs[e]
}

func (e Environment) String() string { return string(e) }
