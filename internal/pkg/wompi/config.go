package wompi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andinosoft/contaflow/internal/pkg/env"
)

// Environment is the closed set of Wompi environments. It is resolved once
// at startup; an unrecognized value is a configuration error, never a
// fallback to production.
type Environment int

const (
	EnvSandbox Environment = iota
	EnvProduction
	// EnvTestingWithProdCreds points the client at the sandbox API while
	// carrying production credentials, used for pre-launch verification.
	EnvTestingWithProdCreds
)

const (
	sandboxBaseURL    = "https://sandbox.wompi.co/v1"
	productionBaseURL = "https://production.wompi.co/v1"
)

const defaultTimeout = 15 * time.Second

// String returns the configuration name of the environment.
func (e Environment) String() string {
	switch e {
	case EnvProduction:
		return "production"
	case EnvTestingWithProdCreds:
		return "testing_prod_creds"
	default:
		return "sandbox"
	}
}

// ResolveEnvironment maps a configuration string to an Environment.
func ResolveEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sandbox", "test":
		return EnvSandbox, nil
	case "production", "prod":
		return EnvProduction, nil
	case "testing_prod_creds", "testing-with-prod-creds":
		return EnvTestingWithProdCreds, nil
	default:
		return EnvSandbox, fmt.Errorf("unknown wompi environment %q", s)
	}
}

// BaseURL returns the API root for the environment.
func (e Environment) BaseURL() string {
	if e == EnvProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// Config is the immutable Wompi configuration resolved at startup.
type Config struct {
	Environment     Environment
	BaseURL         string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	EventsSecret    string
	RedirectURL     string
	Timeout         time.Duration
}

// LoadConfig resolves the Wompi configuration from the environment once.
// Key prefixes are checked against the resolved environment so sandbox
// requests can never silently run with production credentials or vice versa.
func LoadConfig() (*Config, error) {
	environment, err := ResolveEnvironment(env.GetEnv("WOMPI_ENV", "sandbox"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:     environment,
		BaseURL:         strings.TrimRight(env.GetEnv("WOMPI_BASE_URL", environment.BaseURL()), "/"),
		PublicKey:       strings.TrimSpace(env.GetEnv("WOMPI_PUBLIC_KEY", "")),
		PrivateKey:      strings.TrimSpace(env.GetEnv("WOMPI_PRIVATE_KEY", "")),
		IntegritySecret: strings.TrimSpace(env.GetEnv("WOMPI_INTEGRITY_SECRET", "")),
		EventsSecret:    strings.TrimSpace(env.GetEnv("WOMPI_EVENTS_SECRET", "")),
		RedirectURL:     strings.TrimSpace(env.GetEnv("WOMPI_REDIRECT_URL", "")),
		Timeout:         defaultTimeout,
	}

	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil, errors.New("WOMPI_PUBLIC_KEY/WOMPI_PRIVATE_KEY are not configured")
	}
	if err := cfg.checkKeyPrefixes(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) checkKeyPrefixes() error {
	wantTest := c.Environment == EnvSandbox
	if c.Environment == EnvTestingWithProdCreds {
		wantTest = false
	}

	isTestKey := strings.HasPrefix(c.PublicKey, "pub_test_")
	isProdKey := strings.HasPrefix(c.PublicKey, "pub_prod_")
	if !isTestKey && !isProdKey {
		return fmt.Errorf("unrecognized wompi public key prefix for %s", c.Environment)
	}
	if wantTest && !isTestKey {
		return fmt.Errorf("wompi environment %s requires pub_test_ credentials", c.Environment)
	}
	if !wantTest && !isProdKey {
		return fmt.Errorf("wompi environment %s requires pub_prod_ credentials", c.Environment)
	}
	return nil
}
