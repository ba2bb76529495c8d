package pipeline

import (
	"sync"
	"time"

	"github.com/varmalabs/voicegate/internal/verify"
)

// FreshnessWindow bounds how long a published result stays readable. An
// older result must never be served as its real status, or a poller could
// reuse a verdict produced for an earlier request.
const FreshnessWindow = 10 * time.Second

// ResultSlot holds the single live result for a logical channel. Each new
// terminal decision overwrites the previous one.
type ResultSlot struct {
	mu        sync.RWMutex
	result    verify.Result
	writtenAt time.Time
	now       func() time.Time // swappable for tests
}

func NewResultSlot() *ResultSlot {
	return &ResultSlot{now: time.Now}
}

// Publish overwrites the slot with a new terminal result.
func (s *ResultSlot) Publish(r verify.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
	s.writtenAt = s.now()
}

// Get returns the live result, or a waiting placeholder when nothing has
// been published or the stored result has gone stale.
func (s *ResultSlot) Get() verify.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.writtenAt.IsZero() || s.now().Sub(s.writtenAt) > FreshnessWindow {
		return verify.Result{Status: verify.StatusWaiting}
	}
	return s.result
}
