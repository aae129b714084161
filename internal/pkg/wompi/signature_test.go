package wompi

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionIntegrity(t *testing.T) {
	got := TransactionIntegrity("sk8-438k4-xmxm392-sn2m", 2490000, "COP", "prod_integrity_Z5mMke9x0k8gpErbDqwrJXMqsI6SFli6")

	// Known vector from the provider's integrity documentation.
	want := "37c8407747e595535433ef8f6a811d853cd943046624a0ec04662b17bbf33bf5"
	assert.Equal(t, want, got)
}

func TestTransactionIntegrityDependsOnEveryInput(t *testing.T) {
	base := TransactionIntegrity("REF-1", 100, "COP", "secret")
	assert.NotEqual(t, base, TransactionIntegrity("REF-2", 100, "COP", "secret"))
	assert.NotEqual(t, base, TransactionIntegrity("REF-1", 101, "COP", "secret"))
	assert.NotEqual(t, base, TransactionIntegrity("REF-1", 100, "USD", "secret"))
	assert.NotEqual(t, base, TransactionIntegrity("REF-1", 100, "COP", "other"))
}

func eventFixture(t *testing.T, secret string) *Event {
	t.Helper()

	payload := fmt.Sprintf(`{
		"event": "transaction.updated",
		"data": {
			"transaction": {
				"id": "1234-5678",
				"status": "APPROVED",
				"amount_in_cents": 77350000,
				"reference": "CFLOW-1-ABC"
			}
		},
		"signature": {
			"properties": ["transaction.id", "transaction.status", "transaction.amount_in_cents"],
			"checksum": "%s"
		},
		"timestamp": 1700000000,
		"sent_at": "2023-11-14T22:13:20.000Z"
	}`, checksumFor("1234-5678"+"APPROVED"+"77350000"+"1700000000"+secret))

	event, err := ParseEvent([]byte(payload))
	require.NoError(t, err)
	return event
}

func checksumFor(concatenated string) string {
	sum := sha256.Sum256([]byte(concatenated))
	return hex.EncodeToString(sum[:])
}

func TestVerifyEventChecksum(t *testing.T) {
	const secret = "test_events_secret"
	event := eventFixture(t, secret)

	assert.True(t, VerifyEventChecksum(event, secret))
	assert.False(t, VerifyEventChecksum(event, "wrong_secret"))
	assert.False(t, VerifyEventChecksum(event, ""))
	assert.False(t, VerifyEventChecksum(nil, secret))
}

func TestVerifyEventChecksumMissingProperty(t *testing.T) {
	const secret = "test_events_secret"
	event := eventFixture(t, secret)
	event.Signature.Properties = append(event.Signature.Properties, "transaction.finalized_at")

	assert.False(t, VerifyEventChecksum(event, secret))
}

func TestVerifyEventChecksumEmptyChecksum(t *testing.T) {
	event := eventFixture(t, "s")
	event.Signature.Checksum = ""

	assert.False(t, VerifyEventChecksum(event, "s"))
}

func TestVerifyEventChecksumIsCaseInsensitive(t *testing.T) {
	const secret = "test_events_secret"
	event := eventFixture(t, secret)
	event.Signature.Checksum = "  " + toUpperHex(event.Signature.Checksum) + "  "

	assert.True(t, VerifyEventChecksum(event, secret))
}

func toUpperHex(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func TestTransactionField(t *testing.T) {
	event := eventFixture(t, "s")

	assert.Equal(t, "CFLOW-1-ABC", event.TransactionField("reference"))
	assert.Equal(t, "APPROVED", event.TransactionField("status"))
	assert.Equal(t, "", event.TransactionField("missing"))
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte("{not json"))
	assert.Error(t, err)

	_, err = ParseEvent([]byte(`{"data": {}}`))
	assert.Error(t, err)
}
