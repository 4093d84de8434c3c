package workflow

import (
	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// Handler 审批流程 HTTP 处理器
type Handler struct {
	manager   *workflow.Manager
	scheduler *workflow.Scheduler
	registry  *workflow.Registry
	stats     *workflow.Stats
}

// NewHandler 创建处理器
func NewHandler(manager *workflow.Manager, scheduler *workflow.Scheduler, registry *workflow.Registry, stats *workflow.Stats) *Handler {
	return &Handler{
		manager:   manager,
		scheduler: scheduler,
		registry:  registry,
		stats:     stats,
	}
}

// Submit 提交内容进入审批
// @Summary 提交内容进入审批流水线
// @Tags Workflow
// @Accept json
// @Produce json
// @Param request body workflow.SubmitContentRequest true "提交请求"
// @Success 201 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Router /api/workflow/submit [post]
func (h *Handler) Submit(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var req workflow.SubmitContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	instance, err := h.manager.SubmitContent(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Created(c, instance)
}

// ExecuteAction 执行审批动作
// @Summary 对实例当前步骤执行审批动作
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "实例ID"
// @Param request body workflow.ApprovalActionRequest true "审批动作"
// @Success 200 {object} common.APIResponse
// @Failure 403 {object} common.APIResponse
// @Failure 409 {object} common.APIResponse
// @Router /api/workflow/instances/{id}/actions [post]
func (h *Handler) ExecuteAction(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var req workflow.ApprovalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}
	req.InstanceID = c.Param("id")
	req.ReviewerID = userCtx.UserID

	instance, err := h.manager.ExecuteApprovalAction(c.Request.Context(), &req)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, instance)
}

// Get 查询实例详情
// @Summary 查询实例及步骤历史
// @Tags Workflow
// @Produce json
// @Param id path string true "实例ID"
// @Success 200 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Router /api/workflow/instances/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	instance, err := h.manager.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, instance)
}

// GetProgress 查询实例进度
// @Summary 查询实例进度
// @Tags Workflow
// @Produce json
// @Param id path string true "实例ID"
// @Success 200 {object} common.APIResponse
// @Router /api/workflow/instances/{id}/progress [get]
func (h *Handler) GetProgress(c *gin.Context) {
	progress, err := h.stats.GetInstanceProgress(c.Request.Context(), h.manager, h.registry, c.Param("id"))
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, progress)
}

// List 列出用户相关实例
// @Summary 按提交者或审核者视角列出实例
// @Tags Workflow
// @Produce json
// @Param status query string false "状态过滤"
// @Param contentType query string false "内容类型过滤"
// @Param role query string false "视角: submitter 或 reviewer"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} common.APIResponse
// @Router /api/workflow/instances [get]
func (h *Handler) List(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var filter workflow.InstanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.BadRequest(c, "查询参数错误: "+err.Error())
		return
	}
	var page common.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		common.BadRequest(c, "分页参数错误: "+err.Error())
		return
	}

	instances, total, err := h.manager.ListUserInstances(
		c.Request.Context(), userCtx.UserID, &filter, page.GetPageSize(), page.GetOffset())
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.PagedList(c, instances, total, page)
}

// PendingReviews 审核队列
// @Summary 返回审核人可处理的待审列表（优先级降序）
// @Tags Workflow
// @Produce json
// @Param contentType query string false "内容类型过滤"
// @Param priority query string false "优先级过滤"
// @Success 200 {object} common.APIResponse
// @Router /api/workflow/pending [get]
func (h *Handler) PendingReviews(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var filter workflow.PendingReviewFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		common.BadRequest(c, "查询参数错误: "+err.Error())
		return
	}

	instances, err := h.scheduler.GetPendingReviews(c.Request.Context(), userCtx.UserID, &filter)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.List(c, instances, len(instances))
}

// BulkApprove 批量审批
// @Summary 对多个实例执行同一审批动作
// @Tags Workflow
// @Accept json
// @Produce json
// @Param request body workflow.BulkApproveRequest true "批量请求"
// @Success 200 {object} common.APIResponse
// @Router /api/workflow/bulk-approve [post]
func (h *Handler) BulkApprove(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var req workflow.BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "请求格式错误: "+err.Error())
		return
	}

	result, err := h.scheduler.BulkApprove(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, result)
}

// Cancel 管理员取消流程
// @Summary 取消进行中的审批流程
// @Tags Workflow
// @Accept json
// @Produce json
// @Param id path string true "实例ID"
// @Success 200 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse
// @Router /api/workflow/instances/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userCtx, ok := auth.GetUserContext(c)
	if !ok {
		common.BadRequest(c, "缺少用户上下文")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	instance, err := h.manager.CancelInstance(c.Request.Context(), c.Param("id"), userCtx.UserID, body.Reason)
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, instance)
}

// Statistics 全局统计
// @Summary 审批流程全局统计
// @Tags Workflow
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/workflow/statistics [get]
func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.stats.GetStatistics(c.Request.Context())
	if err != nil {
		common.EngineError(c, err)
		return
	}
	common.Success(c, stats)
}
