package pipeline

import (
	"testing"
	"time"

	"github.com/varmalabs/voicegate/internal/verify"
)

func TestResultSlotEmptyIsWaiting(t *testing.T) {
	slot := NewResultSlot()
	if got := slot.Get(); got.Status != verify.StatusWaiting {
		t.Errorf("Empty slot returned status %q, expected waiting", got.Status)
	}
}

func TestResultSlotFreshResult(t *testing.T) {
	slot := NewResultSlot()
	slot.Publish(verify.Result{Status: verify.StatusVerified, Similarity: 0.91, Timestamp: time.Now()})

	got := slot.Get()
	if got.Status != verify.StatusVerified || got.Similarity != 0.91 {
		t.Errorf("Got %+v, expected the published result", got)
	}
}

func TestResultSlotStaleResultIsWaiting(t *testing.T) {
	slot := NewResultSlot()
	base := time.Now()
	slot.now = func() time.Time { return base }
	slot.Publish(verify.Result{Status: verify.StatusFailed, Reason: verify.ReasonBelowThreshold})

	// still fresh exactly at the window edge
	slot.now = func() time.Time { return base.Add(FreshnessWindow) }
	if got := slot.Get(); got.Status != verify.StatusFailed {
		t.Errorf("Result at the freshness edge returned %q, expected failed", got.Status)
	}

	slot.now = func() time.Time { return base.Add(FreshnessWindow + time.Millisecond) }
	if got := slot.Get(); got.Status != verify.StatusWaiting {
		t.Errorf("Stale result returned %q, expected waiting", got.Status)
	}
	if got := slot.Get(); got.Reason != "" {
		t.Errorf("Stale result leaked reason %q", got.Reason)
	}
}

func TestResultSlotOverwrite(t *testing.T) {
	slot := NewResultSlot()
	slot.Publish(verify.Result{Status: verify.StatusFailed, Reason: verify.ReasonSpoofDetected})
	slot.Publish(verify.Result{Status: verify.StatusVerified, Similarity: 0.8})

	got := slot.Get()
	if got.Status != verify.StatusVerified {
		t.Errorf("Got %q after overwrite, expected verified", got.Status)
	}
	if got.Reason != "" {
		t.Errorf("Overwritten reason survived: %q", got.Reason)
	}
}
