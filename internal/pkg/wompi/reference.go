package wompi

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateReference produces a merchant reference unique across concurrent
// checkouts for the same prefix. There is no central coordinator, so the
// reference combines a millisecond timestamp with a random UUID-derived
// suffix instead of a counter.
func GenerateReference(prefix string) string {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if p == "" {
		p = "PAY"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("%s-%d-%s", p, time.Now().UnixMilli(), suffix)
}
