package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
	"github.com/joseph-ayodele/pallet-tracker/internal/repository"
)

var (
	// ErrRepositoryRequired is returned when no association repository is provided.
	ErrRepositoryRequired = errors.New("association repository required")

	// ErrNoIdentifiers is returned when a lookup is requested with nothing to look up.
	ErrNoIdentifiers = errors.New("no identifiers to look up")
)

// Service resolves pallet identifiers to the documents and pages they appear on.
// Every call queries the store; nothing is cached.
type Service struct {
	repo    repository.AssociationRepository
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit throttles store queries to qps with the given burst.
// qps <= 0 leaves queries unthrottled.
func WithRateLimit(qps float64, burst int) Option {
	return func(s *Service) {
		if qps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// NewService returns a lookup service over repo.
func NewService(repo repository.AssociationRepository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	s := &Service{repo: repo, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// ParseIdentifierList splits newline-delimited input, trims each line and drops
// blank ones. Lines are otherwise kept verbatim; format is not validated.
func ParseIdentifierList(text string) []string {
	out := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if id := strings.TrimSpace(line); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Lookup queries the store once per distinct identifier, in input order.
// Identifiers are trimmed; blank ones are ignored. A failed query is recorded
// on that identifier's outcome and does not stop the remaining queries.
// The only error returned is ErrNoIdentifiers, before any query is issued.
func (s *Service) Lookup(ctx context.Context, identifiers []string) (map[string]entity.LookupOutcome, error) {
	ids := distinct(identifiers)
	if len(ids) == 0 {
		return nil, common.NewAppError("INVALID_INPUT", ErrNoIdentifiers.Error(), errors.Join(common.ErrInvalidInput, ErrNoIdentifiers))
	}

	start := time.Now()
	out := make(map[string]entity.LookupOutcome, len(ids))
	var found, failed int

	for _, id := range ids {
		o := s.lookupOne(ctx, id)
		switch {
		case o.Err != nil:
			failed++
		case len(o.Matches) > 0:
			found++
		}
		out[id] = o
	}

	s.logger.Info("lookup completed",
		"request_id", common.RequestIDFromContext(ctx),
		"identifiers", len(ids),
		"found", found,
		"not_found", len(ids)-found-failed,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *Service) lookupOne(ctx context.Context, id string) entity.LookupOutcome {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("lookup throttle wait failed", "pallet_id", id, "error", err)
			return entity.LookupOutcome{Identifier: id, Err: common.NewStageError(common.StoreQueryFailure, 0, id, err)}
		}
	}

	matches, err := s.repo.ListByIdentifier(ctx, id)
	if err != nil {
		s.logger.Warn("lookup query failed", "pallet_id", id, "error", err)
		return entity.LookupOutcome{Identifier: id, Err: common.NewStageError(common.StoreQueryFailure, 0, id, err)}
	}
	if matches == nil {
		matches = []entity.Association{}
	}
	return entity.LookupOutcome{Identifier: id, Matches: matches}
}

// distinct trims, drops blanks and removes repeats, keeping first-occurrence order.
func distinct(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, raw := range identifiers {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Distinct exposes the identifier normalization Lookup applies, so callers can
// present outcomes in the same order the queries were issued.
func Distinct(identifiers []string) []string { return distinct(identifiers) }
