package wompi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// TransactionIntegrity computes the integrity signature required on
// transaction creation: SHA-256 over reference, amount in cents, currency
// and the merchant integrity secret, concatenated in that order.
func TransactionIntegrity(reference string, amountInCents int64, currency, secret string) string {
	payload := reference + strconv.FormatInt(amountInCents, 10) + currency + secret
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyEventChecksum recomputes a webhook event's checksum from the
// properties it declares plus its timestamp and the events secret, and
// compares it to the checksum the provider sent. An event with no checksum
// never validates.
func VerifyEventChecksum(event *Event, secret string) bool {
	if event == nil || secret == "" {
		return false
	}
	checksum := strings.TrimSpace(event.Signature.Checksum)
	if checksum == "" {
		return false
	}

	var b strings.Builder
	for _, prop := range event.Signature.Properties {
		val, ok := event.lookupProperty(prop)
		if !ok {
			return false
		}
		b.WriteString(val)
	}
	b.WriteString(strconv.FormatInt(event.Timestamp, 10))
	b.WriteString(secret)

	sum := sha256.Sum256([]byte(b.String()))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(checksum)), []byte(expected)) == 1
}

// lookupProperty resolves a dotted property path such as
// "transaction.amount_in_cents" against the event's data section, rendering
// numbers without a decimal part the way the provider concatenates them.
func (e *Event) lookupProperty(path string) (string, bool) {
	var cur interface{} = e.Data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}

	switch v := cur.(type) {
	case string:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), true
		}
		return fmt.Sprintf("%v", v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}
