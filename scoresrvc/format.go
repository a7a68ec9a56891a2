package scoresrvc

import (
	"fmt"
	"sort"
)

// FormatStrategy turns a submission history into score, cumtime,
// tiebreaker and a per-problem breakdown. Implementations must be pure:
// the same inputs always yield the same result, so recompute stays
// idempotent and retries are safe.
type FormatStrategy interface {
	ID() string
	ValidateConfig(config map[string]any) error
	ComputeParticipation(contest Contest, part Participation, problems []ContestProblem, history []SubmissionRecord) Result
}

// FormatRegistry maps a format identifier to its strategy. It is built
// once at process start; there is no runtime registration path.
type FormatRegistry struct {
	strategies map[string]FormatStrategy
}

func NewFormatRegistry() *FormatRegistry {
	reg := &FormatRegistry{strategies: map[string]FormatStrategy{}}
	reg.register(DefaultFormat{})
	reg.register(IcpcFormat{})
	return reg
}

func (r *FormatRegistry) register(s FormatStrategy) {
	if _, ok := r.strategies[s.ID()]; ok {
		panic(fmt.Sprintf("duplicate format strategy %q", s.ID()))
	}
	r.strategies[s.ID()] = s
}

func (r *FormatRegistry) Get(id string) (FormatStrategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, fmt.Errorf("unknown contest format %q", id)
	}
	return s, nil
}

// Validate checks a format id and its config before anything is persisted.
func (r *FormatRegistry) Validate(id string, config map[string]any) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := s.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid config for format %q: %w", id, err)
	}
	return nil
}

func (r *FormatRegistry) IDs() []string {
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
