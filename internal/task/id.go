package task

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID generates a ULID for work items and microtasks. ULIDs sort
// lexicographically by creation time, which gives queues their age
// tiebreak without a separate timestamp comparison.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewMicroTaskID derives a stable child ID from a parent item ID and a
// sequence index. Stable IDs let a re-decomposed item reuse cache entries
// without re-keying in-flight assignments.
func NewMicroTaskID(parentID string, index int) string {
	return fmt.Sprintf("%s-mt%02d", parentID, index+1)
}
