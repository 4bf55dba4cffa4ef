package management

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"runtimeops/internal/approval"
	"runtimeops/internal/constants"
	"runtimeops/internal/logger"
	"runtimeops/internal/orchestrator"
	"runtimeops/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		runtime := v1.Group("/runtime")
		{
			runtime.GET("/config", h.GetRuntimeConfig)
			runtime.GET("/history", h.GetHistory)
			runtime.POST("/stage", h.Stage)
		}

		v1.POST("/batches/apply", h.ApplyBatch)

		approvals := v1.Group("/approvals")
		{
			approvals.GET("", h.ListApprovals)
			approvals.GET("/:id", h.GetApproval)
			approvals.POST("/:id/approve", h.Approve)
			approvals.POST("/:id/reject", h.Reject)
		}

		bridge := v1.Group("/bridge")
		{
			bridge.GET("/summary", h.BridgeSummary)
			bridge.GET("/users/:user_id/jobs", h.BridgeJobs)
		}
	}
}

// GetRuntimeConfig godoc
// @Summary      Get the active runtime config
// @Description  Returns the authoritative runtime config including its version
// @Tags         runtime
// @Produce      json
// @Success      200  {object}  runtimeconfig.RuntimeConfig
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      502  {object}  errors.ErrorResponse
// @Router       /runtime/config [get]
func (h *Handler) GetRuntimeConfig(c *gin.Context) {
	cfg, err := h.Service.GetRuntimeConfig(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// GetHistory godoc
// @Summary      List runtime switch history
// @Description  Returns committed switch events, newest first
// @Tags         runtime
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of events to return (1-1000)" default(100)
// @Success      200    {array}   runtimeconfig.SwitchEvent
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /runtime/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	events, err := h.Service.GetHistory(c.Request.Context(), parseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Stage godoc
// @Summary      Stage changes
// @Description  Diffs the desired state against the authoritative config and returns the staged actions with bridge advisories
// @Tags         runtime
// @Accept       json
// @Produce      json
// @Param        request  body      StageRequest  true  "Desired state"
// @Success      200      {object}  StageResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      502      {object}  errors.ErrorResponse
// @Router       /runtime/stage [post]
func (h *Handler) Stage(c *gin.Context) {
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	resp, err := h.Service.Stage(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ApplyBatch godoc
// @Summary      Apply a batch of staged actions
// @Description  Runs the actions phase by phase. With stream=true the response is a server-sent event stream of "progress" events followed by one "result" or "error" event.
// @Tags         batches
// @Accept       json
// @Produce      json
// @Produce      text/event-stream
// @Param        X-Operator-ID  header    string             false  "Operator applying the batch"
// @Param        stream         query     bool               false  "Stream progress as server-sent events"
// @Param        request        body      ApplyBatchRequest  true   "Batch"
// @Success      200            {object}  orchestrator.BatchResult
// @Failure      400            {object}  errors.ErrorResponse
// @Failure      500            {object}  errors.ErrorResponse
// @Router       /batches/apply [post]
func (h *Handler) ApplyBatch(c *gin.Context) {
	var req ApplyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	// A started batch runs to completion even if the client goes away.
	ctx := context.WithoutCancel(c.Request.Context())

	if stream, _ := strconv.ParseBool(c.Query("stream")); stream {
		h.applyStreaming(c, ctx, req)
		return
	}

	result, err := h.Service.ApplyBatch(ctx, req, nil)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) applyStreaming(c *gin.Context, ctx context.Context, req ApplyBatchRequest) {
	started := false
	observer := func(progress []orchestrator.ApplyProgress) error {
		if !started {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			started = true
		}
		c.SSEvent("progress", progress)
		c.Writer.Flush()
		return nil
	}

	result, err := h.Service.ApplyBatch(ctx, req, observer)
	if !started {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if err != nil {
		h.Logger.ErrorwCtx(ctx, "Streamed batch aborted", "error", err)
		c.SSEvent("error", errors.ToErrorResponse(err))
	}
	if result != nil {
		c.SSEvent("result", result)
	}
	c.Writer.Flush()
}

// ListApprovals godoc
// @Summary      List pending approval requests
// @Tags         approvals
// @Produce      json
// @Param        limit  query     int  false  "Maximum number of requests to return (1-1000)" default(100)
// @Success      200    {array}   approval.Request
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /approvals [get]
func (h *Handler) ListApprovals(c *gin.Context) {
	requests, err := h.Service.ListApprovals(c.Request.Context(), parseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetApproval godoc
// @Summary      Get an approval request
// @Tags         approvals
// @Produce      json
// @Param        id   path      string  true  "Approval request ID"
// @Success      200  {object}  approval.Request
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /approvals/{id} [get]
func (h *Handler) GetApproval(c *gin.Context) {
	req, err := h.Service.GetApproval(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// Approve godoc
// @Summary      Approve a pending request
// @Description  The approving operator must differ from the requester
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        X-Operator-ID  header    string                  true   "Approving operator"
// @Param        id             path      string                  true   "Approval request ID"
// @Param        request        body      ResolveApprovalRequest  false  "Resolution note"
// @Success      200            {object}  approval.Request
// @Failure      400            {object}  errors.ErrorResponse
// @Failure      403            {object}  errors.ErrorResponse
// @Failure      404            {object}  errors.ErrorResponse
// @Failure      409            {object}  errors.ErrorResponse
// @Router       /approvals/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	h.resolve(c, h.Service.ApproveRequest)
}

// Reject godoc
// @Summary      Reject a pending request
// @Tags         approvals
// @Accept       json
// @Produce      json
// @Param        X-Operator-ID  header    string                  true   "Rejecting operator"
// @Param        id             path      string                  true   "Approval request ID"
// @Param        request        body      ResolveApprovalRequest  false  "Resolution note"
// @Success      200            {object}  approval.Request
// @Failure      400            {object}  errors.ErrorResponse
// @Failure      403            {object}  errors.ErrorResponse
// @Failure      404            {object}  errors.ErrorResponse
// @Router       /approvals/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	h.resolve(c, h.Service.RejectRequest)
}

func (h *Handler) resolve(c *gin.Context, fn func(ctx context.Context, id, note string) (*approval.Request, error)) {
	var body ResolveApprovalRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
			return
		}
	}

	req, err := fn(c.Request.Context(), c.Param("id"), body.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// BridgeSummary godoc
// @Summary      Bridge job counts by status
// @Tags         bridge
// @Produce      json
// @Param        user_id  query     string  false  "Restrict to one user"
// @Success      200      {object}  bridge.Summary
// @Failure      503      {object}  errors.ErrorResponse
// @Router       /bridge/summary [get]
func (h *Handler) BridgeSummary(c *gin.Context) {
	summary, err := h.Service.BridgeSummary(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// BridgeJobs godoc
// @Summary      Bridge jobs for a user
// @Tags         bridge
// @Produce      json
// @Param        user_id  path      string  true  "User ID"
// @Success      200      {array}   bridge.Row
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      503      {object}  errors.ErrorResponse
// @Router       /bridge/users/{user_id}/jobs [get]
func (h *Handler) BridgeJobs(c *gin.Context) {
	rows, err := h.Service.BridgeJobs(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
