package steps

import (
	"fmt"

	"github.com/systemstart/firstboot/pkg/plan"
)

// NewStep creates a Step implementation from a StepConfig.
func NewStep(cfg plan.StepConfig) (Step, error) {
	switch cfg.Type {
	case plan.StepTypeCommand:
		return NewCommandStep(cfg.Name, cfg.Command), nil
	case plan.StepTypeService:
		return NewServiceStep(cfg.Name, cfg.Service), nil
	case plan.StepTypeSeed:
		return NewSeedStep(cfg.Name, cfg.Seed), nil
	case plan.StepTypeVerify:
		return NewVerifyStep(cfg.Name, cfg.Verify), nil
	default:
		return nil, fmt.Errorf("unknown step type: %s", cfg.Type)
	}
}
