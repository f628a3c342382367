// Package dedupe orchestrates duplicate checks: candidate lookup, cached
// decisions and the scoring resolver.
package dedupe

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/record"
	"github.com/Ramsey-B/clover/pkg/decisioncache"
	dedupecore "github.com/Ramsey-B/clover/pkg/dedupe"
	"github.com/Ramsey-B/clover/pkg/fingerprint"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config tunes the duplicate check pipeline
type Config struct {
	DefaultThreshold int
	CandidateLimit   int
}

// Service runs duplicate checks against the stored records
type Service struct {
	logger     ectologger.Logger
	recordRepo *record.Repository
	cache      *decisioncache.Cache
	resolver   *dedupecore.Resolver
	cfg        Config
}

// NewService creates a new dedupe service
func NewService(
	logger ectologger.Logger,
	recordRepo *record.Repository,
	cache *decisioncache.Cache,
	resolver *dedupecore.Resolver,
	cfg Config,
) *Service {
	if cfg.DefaultThreshold == 0 {
		cfg.DefaultThreshold = dedupecore.DefaultThreshold
	}
	if cfg.CandidateLimit == 0 {
		cfg.CandidateLimit = 200
	}
	return &Service{
		logger:     logger,
		recordRepo: recordRepo,
		cache:      cache,
		resolver:   resolver,
		cfg:        cfg,
	}
}

// DefaultThreshold returns the configured duplicate threshold
func (s *Service) DefaultThreshold() int {
	return s.cfg.DefaultThreshold
}

// CheckDuplicates scores the incoming record against plausible stored
// candidates. The threshold must be explicit; use DefaultThreshold for the
// configured one. Cached decisions are reused unless refresh is set.
func (s *Service) CheckDuplicates(ctx context.Context, tenantID string, incoming *models.ContactRecord, threshold int, refresh bool) (*models.DuplicateDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "dedupe.Service.CheckDuplicates")
	defer span.End()

	start := time.Now()
	fp := fingerprint.Identity(incoming)

	if !refresh {
		cached, err := s.cache.Get(ctx, tenantID, fp)
		if err == nil && cached != nil && cached.Threshold == threshold {
			return cached, nil
		}
	}

	candidates, err := s.recordRepo.FindPlausibleCandidates(ctx, tenantID, incoming, s.cfg.CandidateLimit)
	if err != nil {
		return nil, err
	}

	decision, err := s.resolver.CheckDuplicates(ctx, incoming, candidates, threshold)
	if err != nil {
		return nil, err
	}
	decision.Fingerprint = fp

	outcome := "unique"
	if decision.IsDuplicate {
		outcome = "duplicate"
	}
	metrics.RecordDuplicateCheck(tenantID, outcome, time.Since(start).Seconds())
	for _, candidate := range decision.Candidates {
		for _, match := range candidate.Matches {
			metrics.RecordMatchConfidence(match.Field, match.Confidence)
		}
	}

	if err := s.cache.Set(ctx, tenantID, fp, decision); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to cache duplicate decision")
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":    tenantID,
		"candidates":   len(decision.Candidates),
		"is_duplicate": decision.IsDuplicate,
		"threshold":    threshold,
	}).Debug("Completed duplicate check")

	return decision, nil
}

// InvalidateDecision drops the cached decision for a record's fingerprint.
// Called after any write that changes what a future check would see.
func (s *Service) InvalidateDecision(ctx context.Context, tenantID string, record *models.ContactRecord) {
	fp := fingerprint.Identity(record)
	if err := s.cache.Invalidate(ctx, tenantID, fp); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to invalidate cached decision")
	}
}
