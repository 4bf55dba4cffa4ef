package management

import (
	"fmt"

	"runtimeops/internal/staging"
)

func ValidateStageRequest(req StageRequest) error {
	if req.Runtime == nil && req.FreezeUpdates == nil && len(req.Subsystems) == 0 {
		return fmt.Errorf("stage request has no desired state")
	}
	if req.Runtime != nil {
		if !req.Runtime.Profile.Valid() {
			return fmt.Errorf("invalid runtime.profile: %q", req.Runtime.Profile)
		}
		if err := req.Runtime.Overrides.Validate(); err != nil {
			return fmt.Errorf("invalid runtime.overrides: %w", err)
		}
	}
	for i, change := range req.Subsystems {
		if change.Type.Phase() != staging.PhaseSubsystem || !change.Type.Valid() {
			return fmt.Errorf("subsystems[%d]: %q is not a subsystem action", i, change.Type)
		}
	}
	return nil
}

func ValidateApplyBatchRequest(req ApplyBatchRequest) error {
	if len(req.Actions) == 0 {
		return fmt.Errorf("actions is required")
	}
	if req.Reason == "" {
		return fmt.Errorf("reason is required")
	}
	return nil
}
