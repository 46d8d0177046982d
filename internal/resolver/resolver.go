package resolver

import (
	"primamateria.systems/enc/internal/facts"
	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/templates"
)

// Resolver resolves keys for a single host. It holds no state beyond the
// host snapshot, so one Resolver may serve many keys.
type Resolver struct {
	host         *facts.HostFacts
	contribution *ValuePipeline
	value        *ValuePipeline
	validation   *ValuePipeline
}

func New(host *facts.HostFacts) *Resolver {
	r := templates.NewRenderer(host)
	return &Resolver{
		host:         host,
		contribution: NewContributionPipeline(r),
		value:        NewValuePipeline(r),
		validation:   NewValidationPipeline(),
	}
}

// Resolve selects and merges the candidates of key. Values of non merging
// keys are returned raw; call Value to obtain the typed result.
func (r *Resolver) Resolve(key *lookup.Key) (*Resolved, error) {
	selected := Select(key, r.host)
	return Merge(key, selected, func(v any) (any, error) {
		return r.contribution.Process(key, v)
	})
}

// Value renders, casts and validates a resolved value. The second result is
// false when the key must be left out of the classification.
func (r *Resolver) Value(key *lookup.Key, res *Resolved) (any, bool, error) {
	if res.Omit {
		return nil, false, nil
	}
	pipeline := r.value
	if res.Processed {
		pipeline = r.validation
	}
	v, err := pipeline.Process(key, res.Value)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
