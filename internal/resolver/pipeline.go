package resolver

import (
	"primamateria.systems/enc/internal/caster"
	"primamateria.systems/enc/internal/lookup"
	"primamateria.systems/enc/internal/templates"
	"primamateria.systems/enc/internal/validators"
)

type ValueStage interface {
	Process(key *lookup.Key, value any) (any, error)
}

// ValuePipeline turns a raw stored value into the typed value sent to the agent.
type ValuePipeline struct {
	stages []ValueStage
}

func (p *ValuePipeline) Process(key *lookup.Key, value any) (any, error) {
	var err error
	for _, stage := range p.stages {
		value, err = stage.Process(key, value)
		if err != nil {
			return nil, err
		}
	}
	return value, nil
}

func NewContributionPipeline(r *templates.Renderer) *ValuePipeline {
	return &ValuePipeline{
		stages: []ValueStage{
			&RenderStage{renderer: r},
			&CastStage{},
		},
	}
}

func NewValuePipeline(r *templates.Renderer) *ValuePipeline {
	return &ValuePipeline{
		stages: []ValueStage{
			&RenderStage{renderer: r},
			&CastStage{},
			&ValidateStage{},
		},
	}
}

func NewValidationPipeline() *ValuePipeline {
	return &ValuePipeline{
		stages: []ValueStage{
			&ValidateStage{},
		},
	}
}

type RenderStage struct {
	renderer *templates.Renderer
}

func (s *RenderStage) Process(_ *lookup.Key, value any) (any, error) {
	return s.renderer.Render(value)
}

type CastStage struct{}

func (s *CastStage) Process(key *lookup.Key, value any) (any, error) {
	return caster.SoftCast(key.Type, value), nil
}

type ValidateStage struct{}

func (s *ValidateStage) Process(key *lookup.Key, value any) (any, error) {
	if err := validators.Validate(key, value); err != nil {
		return nil, err
	}
	return value, nil
}
