// Package pipeline ties a filesystem watch event to a persisted decision:
// it dispatches each newly arrived inbox file to the verification or
// enrollment engine exactly once and publishes the terminal result.
package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/embedding"
	"github.com/varmalabs/voicegate/internal/profile"
	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// Verifier is the verification side of the dispatch.
type Verifier interface {
	Verify(ctx context.Context, raw []float64, sampleRate int, userID string) verify.Result
}

// Enroller is the enrollment side of the dispatch.
type Enroller interface {
	Enroll(ctx context.Context, raw []float64, sampleRate int, userID string) (*profile.VoiceProfile, error)
}

// Config for one watched inbox.
type Config struct {
	InboxDir      string
	DefaultUserID string
	// extra result publishers beyond the in-memory slot
	Publishers []Publisher
}

// Orchestrator watches an inbox directory and processes each file to
// completion before considering the next. One logical worker per inbox;
// run several Orchestrators for several inboxes.
type Orchestrator struct {
	cfg      Config
	verifier Verifier
	enroller Enroller
	slot     *ResultSlot
	log      *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewOrchestrator(cfg Config, verifier Verifier, enroller Enroller, slot *ResultSlot) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		verifier: verifier,
		enroller: enroller,
		slot:     slot,
		log:      logger.GetLogger(),
		inFlight: make(map[string]struct{}),
	}
}

// Run watches the inbox until ctx is cancelled. Any single-file failure is
// published as a failed result and watching continues.
func (o *Orchestrator) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(o.cfg.InboxDir, 0o755); err != nil {
		return err
	}
	if err := watcher.Add(o.cfg.InboxDir); err != nil {
		return err
	}
	o.log.Infof("Watching inbox: %s", o.cfg.InboxDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) || !IsAudioFile(event.Name) {
				continue
			}
			if !o.claim(event.Name) {
				continue
			}
			o.HandleFile(ctx, event.Name)
			o.release(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			o.log.Errorf("Watcher error: %v", err)
		}
	}
}

// claim marks a path as in-flight; duplicate events for a file still being
// handled are ignored. The claim is released once handling finishes, so a
// file re-created later at the same inbox path is dispatched as a new
// request rather than swallowed.
func (o *Orchestrator) claim(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inFlight[path]; busy {
		return false
	}
	o.inFlight[path] = struct{}{}
	return true
}

func (o *Orchestrator) release(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, path)
}

// HandleFile parses the request, dispatches it, and publishes the result.
func (o *Orchestrator) HandleFile(ctx context.Context, path string) {
	o.log.Infof("New audio detected: %s", path)
	waitForSettle(path)

	req := ParseRequest(path, o.cfg.DefaultUserID)
	o.log.Infof("Dispatching %s for user %q", req.Op, req.UserID)

	samples, sampleRate, err := audio.ReadAudio(path)
	if err != nil {
		o.log.Errorf("Reading %s failed: %v", path, err)
		o.publish(verify.Result{
			Status:    verify.StatusFailed,
			Reason:    verify.ReasonInvalidAudio,
			Timestamp: time.Now(),
		})
		return
	}

	switch req.Op {
	case OpEnroll:
		if _, err := o.enroller.Enroll(ctx, samples, sampleRate, req.UserID); err != nil {
			o.log.Errorf("Enrollment failed for %q: %v", req.UserID, err)
			o.publish(verify.Result{
				Status:    verify.StatusFailed,
				Reason:    enrollFailureReason(err),
				Timestamp: time.Now(),
			})
			return
		}
		// profile-update acknowledgment for polling consumers
		o.publish(verify.Result{Status: verify.StatusVerified, Timestamp: time.Now()})
	default:
		o.publish(o.verifier.Verify(ctx, samples, sampleRate, req.UserID))
	}
}

func (o *Orchestrator) publish(r verify.Result) {
	o.slot.Publish(r)
	for _, p := range o.cfg.Publishers {
		p.Publish(r)
	}
}

func enrollFailureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrNoSpeech):
		return verify.ReasonNoSpeech
	case errors.Is(err, audio.ErrInvalidAudio):
		return verify.ReasonInvalidAudio
	case errors.Is(err, embedding.ErrEmbeddingFailure):
		return verify.ReasonEmbeddingFailure
	default:
		return verify.ReasonStorageFailure
	}
}

// waitForSettle waits until the file size stops changing, so a partially
// written upload is not read mid-flight.
func waitForSettle(path string) {
	var lastSize int64 = -1
	for i := 0; i < 20; i++ {
		info, err := os.Stat(path)
		if err == nil && info.Size() == lastSize && lastSize > 0 {
			return
		}
		if err == nil {
			lastSize = info.Size()
		}
		time.Sleep(100 * time.Millisecond)
	}
}
