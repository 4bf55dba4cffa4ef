package staging

import (
	"context"
	"fmt"

	"runtimeops/internal/runtimeconfig"
	"runtimeops/pkg/cel"
)

type RiskRule struct {
	Name       string
	Expression string
	Level      RiskLevel
}

// DefaultRiskLevel is the level an action gets before any rule is applied.
func DefaultRiskLevel(t ActionType) RiskLevel {
	switch t {
	case ActionRuntimeSwitch, ActionFreeze, ActionUnfreeze:
		return RiskHigh
	case ActionOverridesApply, ActionIRTActivate, ActionRankActivate, ActionGraphRevisionActivate:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskClassifier raises the default level of an action when a configured rule
// matches. Rules never lower a level.
type RiskClassifier struct {
	evaluator *cel.Evaluator
	rules     []RiskRule
}

func NewRiskClassifier(rules []RiskRule) (*RiskClassifier, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, err
	}

	for _, rule := range rules {
		if rule.Level.Rank() == 0 {
			return nil, fmt.Errorf("risk rule %q: unknown level %q", rule.Name, rule.Level)
		}
		if err := evaluator.ValidateRuleExpression(rule.Expression); err != nil {
			return nil, fmt.Errorf("risk rule %q: %w", rule.Name, err)
		}
	}

	return &RiskClassifier{evaluator: evaluator, rules: rules}, nil
}

func (c *RiskClassifier) Classify(ctx context.Context, p Payload, current runtimeconfig.Profile) (RiskLevel, error) {
	level := DefaultRiskLevel(p.ActionType())
	if c == nil || len(c.rules) == 0 {
		return level, nil
	}

	payload, err := PayloadMap(p)
	if err != nil {
		return "", err
	}

	in := cel.Input{
		ActionType:     string(p.ActionType()),
		Phase:          int(p.ActionType().Phase()),
		Payload:        payload,
		CurrentProfile: string(current),
	}
	if sp, ok := p.(SubsystemPayload); ok {
		in.Subsystem = string(sp.Subsystem())
	}

	for _, rule := range c.rules {
		if rule.Level.Rank() <= level.Rank() {
			continue
		}
		matched, err := c.evaluator.EvaluateRule(ctx, rule.Expression, in)
		if err != nil {
			return "", fmt.Errorf("risk rule %q: %w", rule.Name, err)
		}
		if matched {
			level = rule.Level
		}
	}

	return level, nil
}
