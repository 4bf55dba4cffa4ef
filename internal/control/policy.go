package control

import (
	"context"
	"fmt"

	"runtimeops/internal/config"
	"runtimeops/internal/runtimeconfig"
	"runtimeops/internal/staging"
)

// ApprovalPolicy decides which actions need a second operator.
type ApprovalPolicy struct {
	required   map[staging.ActionType]bool
	minRisk    staging.RiskLevel
	classifier *staging.RiskClassifier
}

func NewApprovalPolicy(cfg config.ApprovalConfig, classifier *staging.RiskClassifier) (*ApprovalPolicy, error) {
	p := &ApprovalPolicy{
		required:   make(map[staging.ActionType]bool, len(cfg.RequiredActions)),
		classifier: classifier,
	}
	for _, name := range cfg.RequiredActions {
		t := staging.ActionType(name)
		if !t.Valid() {
			return nil, fmt.Errorf("approval.required_actions: unknown action type %q", name)
		}
		p.required[t] = true
	}
	if cfg.MinRisk != "" {
		level, err := staging.ParseRiskLevel(cfg.MinRisk)
		if err != nil {
			return nil, fmt.Errorf("approval.min_risk: %w", err)
		}
		p.minRisk = level
	}
	return p, nil
}

func (p *ApprovalPolicy) Requires(ctx context.Context, payload staging.Payload, current runtimeconfig.Profile) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.required[payload.ActionType()] {
		return true, nil
	}
	if p.minRisk == "" {
		return false, nil
	}
	level, err := p.classifier.Classify(ctx, payload, current)
	if err != nil {
		return false, err
	}
	return level.AtLeast(p.minRisk), nil
}
