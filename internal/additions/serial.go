package additions

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/toolcrib/toolcrib-backend/pkg/enums"
)

// GenerateSerial builds an inventory serial for a materialized tool:
// the first three letters of the category with spaces stripped and
// uppercased, the creation time in epoch milliseconds, and a random
// three-digit suffix. "Power Tools" yields POW-1756723200000-042.
func GenerateSerial(category enums.ToolCategory, now time.Time) string {
	prefix := strings.ToUpper(strings.ReplaceAll(string(category), " ", ""))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%d-%03d", prefix, now.UnixMilli(), rand.Intn(1000))
}
