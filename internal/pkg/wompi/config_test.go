package wompi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		in      string
		want    Environment
		wantErr bool
	}{
		{in: "sandbox", want: EnvSandbox},
		{in: "test", want: EnvSandbox},
		{in: "production", want: EnvProduction},
		{in: "PROD", want: EnvProduction},
		{in: "testing_prod_creds", want: EnvTestingWithProdCreds},
		{in: "staging", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ResolveEnvironment(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestEnvironmentBaseURL(t *testing.T) {
	assert.Equal(t, "https://sandbox.wompi.co/v1", EnvSandbox.BaseURL())
	assert.Equal(t, "https://production.wompi.co/v1", EnvProduction.BaseURL())
	// Production credentials against the sandbox API.
	assert.Equal(t, "https://sandbox.wompi.co/v1", EnvTestingWithProdCreds.BaseURL())
}

func TestLoadConfigSandbox(t *testing.T) {
	t.Setenv("WOMPI_ENV", "sandbox")
	t.Setenv("WOMPI_PUBLIC_KEY", "pub_test_abc123")
	t.Setenv("WOMPI_PRIVATE_KEY", "prv_test_abc123")
	t.Setenv("WOMPI_INTEGRITY_SECRET", "test_integrity")
	t.Setenv("WOMPI_EVENTS_SECRET", "test_events")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, EnvSandbox, cfg.Environment)
	assert.Equal(t, "https://sandbox.wompi.co/v1", cfg.BaseURL)
	assert.Equal(t, "pub_test_abc123", cfg.PublicKey)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
}

func TestLoadConfigRejectsMissingKeys(t *testing.T) {
	t.Setenv("WOMPI_ENV", "sandbox")
	t.Setenv("WOMPI_PUBLIC_KEY", "")
	t.Setenv("WOMPI_PRIVATE_KEY", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsCredentialEnvironmentMismatch(t *testing.T) {
	t.Setenv("WOMPI_PRIVATE_KEY", "prv_x")
	t.Setenv("WOMPI_INTEGRITY_SECRET", "x")
	t.Setenv("WOMPI_EVENTS_SECRET", "x")

	// Production keys may never run against sandbox config.
	t.Setenv("WOMPI_ENV", "sandbox")
	t.Setenv("WOMPI_PUBLIC_KEY", "pub_prod_abc123")
	_, err := LoadConfig()
	assert.Error(t, err)

	// And sandbox keys may never run in production.
	t.Setenv("WOMPI_ENV", "production")
	t.Setenv("WOMPI_PUBLIC_KEY", "pub_test_abc123")
	_, err = LoadConfig()
	assert.Error(t, err)

	// testing_prod_creds expects production credentials.
	t.Setenv("WOMPI_ENV", "testing_prod_creds")
	t.Setenv("WOMPI_PUBLIC_KEY", "pub_prod_abc123")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.wompi.co/v1", cfg.BaseURL)
}

func TestLoadConfigRejectsUnknownKeyPrefix(t *testing.T) {
	t.Setenv("WOMPI_ENV", "sandbox")
	t.Setenv("WOMPI_PUBLIC_KEY", "pk_live_wrong_provider")
	t.Setenv("WOMPI_PRIVATE_KEY", "prv_x")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigBaseURLOverride(t *testing.T) {
	t.Setenv("WOMPI_ENV", "sandbox")
	t.Setenv("WOMPI_PUBLIC_KEY", "pub_test_abc123")
	t.Setenv("WOMPI_PRIVATE_KEY", "prv_test_abc123")
	t.Setenv("WOMPI_BASE_URL", "http://localhost:9090/v1/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090/v1", cfg.BaseURL)
}
