package dedupe

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/models"
)

// DefaultThreshold is the aggregate confidence at which a candidate is
// considered a duplicate.
const DefaultThreshold = 85

// candidate sets at least this large are compared in parallel
const parallelMin = 16

const maxWorkers = 8

// Aggregate runs every registered comparator for one (incoming, candidate)
// pair. Aggregate confidence is the max of the individual signals. Returns
// nil when no comparator produced a signal; such candidates are omitted from
// decisions entirely.
func Aggregate(incoming *models.ContactRecord, candidate models.ContactRecord) *models.MatchCandidate {
	var matches []models.FieldMatch
	best := 0

	for _, compare := range Comparators() {
		match := compare(incoming, &candidate)
		if match == nil {
			continue
		}
		matches = append(matches, *match)
		if match.Confidence > best {
			best = match.Confidence
		}
	}

	if len(matches) == 0 || best == 0 {
		return nil
	}

	return &models.MatchCandidate{
		Record:     candidate,
		Matches:    matches,
		Confidence: best,
	}
}

// Resolver decides whether an incoming record duplicates any of a set of
// candidate records. Stateless and deterministic; it performs no I/O.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// CheckDuplicates aggregates every candidate against the incoming record and
// ranks the results by confidence. IsDuplicate is true when the top candidate
// meets the threshold. The full ranked list is always returned so callers can
// inspect near-misses.
func (r *Resolver) CheckDuplicates(ctx context.Context, incoming *models.ContactRecord, candidates []models.ContactRecord, threshold int) (*models.DuplicateDecision, error) {
	if threshold < 0 || threshold > 100 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid duplicate threshold %d: must be between 0 and 100", threshold))
	}

	decision := &models.DuplicateDecision{
		Candidates: []models.MatchCandidate{},
		Threshold:  threshold,
		CheckedAt:  time.Now().UTC(),
	}

	if incoming == nil || !incoming.HasIdentifiers() || len(candidates) == 0 {
		return decision, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := r.aggregateAll(incoming, candidates)

	// Results are index-addressed, so parallel aggregation stays
	// deterministic: collect in input order, then rank.
	for _, match := range results {
		if match != nil {
			decision.Candidates = append(decision.Candidates, *match)
		}
	}

	sort.SliceStable(decision.Candidates, func(i, j int) bool {
		a, b := decision.Candidates[i], decision.Candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		// equal confidence: prefer the more recently updated candidate
		return a.Record.UpdatedAt.After(b.Record.UpdatedAt)
	})

	decision.IsDuplicate = len(decision.Candidates) > 0 && decision.Candidates[0].Confidence >= threshold

	return decision, nil
}

func (r *Resolver) aggregateAll(incoming *models.ContactRecord, candidates []models.ContactRecord) []*models.MatchCandidate {
	results := make([]*models.MatchCandidate, len(candidates))

	if len(candidates) < parallelMin {
		for i := range candidates {
			results[i] = Aggregate(incoming, candidates[i])
		}
		return results
	}

	indexes := make(chan int)
	var wg sync.WaitGroup

	workers := min(maxWorkers, len(candidates))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = Aggregate(incoming, candidates[i])
			}
		}()
	}

	for i := range candidates {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results
}
