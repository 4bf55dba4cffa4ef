package management

import (
	"context"

	"runtimeops/internal/approval"
	"runtimeops/internal/bridge"
	"runtimeops/internal/orchestrator"
	"runtimeops/internal/runtimeconfig"
)

type Service interface {
	GetRuntimeConfig(ctx context.Context) (*runtimeconfig.RuntimeConfig, error)
	GetHistory(ctx context.Context, limit int) ([]runtimeconfig.SwitchEvent, error)
	Stage(ctx context.Context, req StageRequest) (*StageResponse, error)
	ApplyBatch(ctx context.Context, req ApplyBatchRequest, observer orchestrator.Observer) (*orchestrator.BatchResult, error)

	ListApprovals(ctx context.Context, limit int) ([]approval.Request, error)
	GetApproval(ctx context.Context, id string) (*approval.Request, error)
	ApproveRequest(ctx context.Context, id, note string) (*approval.Request, error)
	RejectRequest(ctx context.Context, id, note string) (*approval.Request, error)

	BridgeSummary(ctx context.Context, userID string) (*bridge.Summary, error)
	BridgeJobs(ctx context.Context, userID string) ([]bridge.Row, error)
}

type BatchApplier interface {
	ApplyBatch(ctx context.Context, req orchestrator.BatchRequest, observer orchestrator.Observer) (*orchestrator.BatchResult, error)
}

type Approvals interface {
	ListPending(ctx context.Context, limit int) ([]approval.Request, error)
	Get(ctx context.Context, id string) (*approval.Request, error)
	Approve(ctx context.Context, id, approver, note string) (*approval.Request, error)
	Reject(ctx context.Context, id, approver, note string) (*approval.Request, error)
}

type BridgeTracker interface {
	Summary(ctx context.Context, userID string) (*bridge.Summary, error)
	RowsForUser(ctx context.Context, userID string) ([]bridge.Row, error)
	Advisory(ctx context.Context) []string
}

type EventPublisher interface {
	PublishBatchApplied(ctx context.Context, result *orchestrator.BatchResult, actor, reason string) error
	PublishApprovalResolved(ctx context.Context, req *approval.Request) error
}
