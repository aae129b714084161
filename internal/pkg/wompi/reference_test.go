package wompi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReferenceFormat(t *testing.T) {
	ref := GenerateReference("CFLOW")

	parts := strings.Split(ref, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "CFLOW", parts[0])
	assert.Len(t, parts[2], 12)
	assert.Equal(t, strings.ToUpper(ref), ref)
}

func TestGenerateReferenceDefaultsPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateReference(""), "PAY-"))
	assert.True(t, strings.HasPrefix(GenerateReference("  "), "PAY-"))
	assert.True(t, strings.HasPrefix(GenerateReference("cflow"), "CFLOW-"))
}

func TestGenerateReferenceUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		ref := GenerateReference("CFLOW")
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate reference %s after %d generations", ref, i)
		}
		seen[ref] = struct{}{}
	}
}
