package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSettingsGenerateAPIKey(t *testing.T) {
	us := &UserSettings{UserID: 1}

	key, err := us.GenerateAPIKey()
	require.NoError(t, err)
	require.NotEmpty(t, key)

	assert.True(t, strings.HasPrefix(key, "cf_"))
	assert.NotEmpty(t, us.APIKeyHash)
	assert.NotNil(t, us.APIKeyCreatedAt)
	assert.Nil(t, us.APIKeyLastUsedAt)
	assert.Equal(t, HashAPIKey(key), us.APIKeyHash)
}

func TestGenerateAPIKeyReplacesHash(t *testing.T) {
	us := &UserSettings{UserID: 99}

	first, err := us.GenerateAPIKey()
	require.NoError(t, err)
	firstHash := us.APIKeyHash

	second, err := us.GenerateAPIKey()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, firstHash, us.APIKeyHash)
	// The old key no longer resolves to the stored hash.
	assert.NotEqual(t, HashAPIKey(first), us.APIKeyHash)
}
