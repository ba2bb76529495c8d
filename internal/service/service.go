// Package service wires the engines, stores, and model handle together.
// Everything here is initialized once at process start and reused across
// all requests.
package service

import (
	"context"
	"fmt"

	"github.com/varmalabs/voicegate/internal/antispoof"
	"github.com/varmalabs/voicegate/internal/audio"
	"github.com/varmalabs/voicegate/internal/blob"
	"github.com/varmalabs/voicegate/internal/embedding"
	"github.com/varmalabs/voicegate/internal/enroll"
	"github.com/varmalabs/voicegate/internal/pipeline"
	"github.com/varmalabs/voicegate/internal/profile"
	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// VoiceService is the biometric pipeline behind the HTTP API and CLI.
type VoiceService struct {
	cfg      *Config
	profiles *profile.Store
	blobs    blob.Store
	verifier *verify.Engine
	enroller *enroll.Engine
	slot     *pipeline.ResultSlot
	natsPub  *pipeline.NATSPublisher
	log      *logger.Logger
}

func New(opts ...Option) (*VoiceService, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	log := logger.GetLogger()

	profiles, err := profile.NewStoreWithPath(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening profile store: %w", err)
	}

	blobs, err := blob.NewBadgerStore(cfg.BlobDir)
	if err != nil {
		profiles.Close()
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	enc := cfg.Encoder
	if enc == nil {
		enc = embedding.NewHTTPModel(cfg.ModelURL)
	}
	normalizer := embedding.NewNormalizer(enc, 0)

	vad := audio.NewEnergyVAD()
	pre := audio.NewPreprocessor(vad, audio.NewSpectralGate())
	scorer := antispoof.NewScorer(vad)

	svc := &VoiceService{
		cfg:      cfg,
		profiles: profiles,
		blobs:    blobs,
		verifier: verify.NewEngine(pre, scorer, normalizer, profiles),
		enroller: enroll.NewEngine(pre, normalizer, profiles, blobs),
		slot:     pipeline.NewResultSlot(),
		log:      log,
	}

	if cfg.NATSUrl != "" {
		svc.natsPub, err = pipeline.NewNATSPublisher(cfg.NATSUrl, cfg.NATSSubject)
		if err != nil {
			// pub/sub fan-out is best-effort; the in-memory slot still works
			log.Warnf("NATS unavailable: %v. Results limited to in-process polling", err)
		}
	}

	log.Infof("Voice service ready (db=%s, blobs=%s)", cfg.DBPath, cfg.BlobDir)
	return svc, nil
}

// VerifyFile runs the full verification pipeline on an audio file.
func (s *VoiceService) VerifyFile(ctx context.Context, path, userID string) verify.Result {
	s.log.Infof("Processing file: %s", path)
	samples, sampleRate, err := audio.ReadAudio(path)
	if err != nil {
		s.log.Errorf("Reading %s failed: %v", path, err)
		return verify.Result{Status: verify.StatusFailed, Reason: verify.ReasonInvalidAudio}
	}
	return s.verifier.Verify(ctx, samples, sampleRate, userID)
}

// EnrollFile enrolls an audio file for a user.
func (s *VoiceService) EnrollFile(ctx context.Context, path, userID string) (*profile.VoiceProfile, error) {
	samples, sampleRate, err := audio.ReadAudio(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.enroller.Enroll(ctx, samples, sampleRate, userID)
}

// RunOrchestrator watches the configured inbox until ctx is cancelled.
func (s *VoiceService) RunOrchestrator(ctx context.Context) error {
	cfg := pipeline.Config{
		InboxDir:      s.cfg.InboxDir,
		DefaultUserID: s.cfg.DefaultUserID,
	}
	if s.natsPub != nil {
		cfg.Publishers = append(cfg.Publishers, s.natsPub)
	}
	orch := pipeline.NewOrchestrator(cfg, s.verifier, s.enroller, s.slot)
	return orch.Run(ctx)
}

// ResultSlot exposes the polling channel for the HTTP layer.
func (s *VoiceService) ResultSlot() *pipeline.ResultSlot {
	return s.slot
}

// UserExists reports whether a user has an enrolled profile.
func (s *VoiceService) UserExists(userID string) (bool, error) {
	return s.profiles.Exists(userID)
}

// ListProfiles returns all enrolled profiles.
func (s *VoiceService) ListProfiles() ([]profile.VoiceProfile, error) {
	return s.profiles.List()
}

// DeleteProfile removes a profile. Administrative action, not part of the
// pipeline.
func (s *VoiceService) DeleteProfile(userID string) error {
	return s.profiles.Delete(userID)
}

func (s *VoiceService) Close() error {
	if s.natsPub != nil {
		s.natsPub.Close()
	}
	if err := s.blobs.Close(); err != nil {
		s.log.Warnf("Closing blob store: %v", err)
	}
	return s.profiles.Close()
}
