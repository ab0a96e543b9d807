package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderNumber builds a human-readable order number: date prefix plus a
// short random suffix (ORD-20260830-7F3A). Collisions are possible and are
// handled by the splitter's bounded retry against the unique index.
func NewOrderNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), suffix)
}
