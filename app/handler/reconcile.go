package handler

import (
	"errors"
	"net/http"
	"time"

	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
	"film-resolver/app/service"

	"github.com/gin-gonic/gin"
)

// ReconcileHandler 匹配相关接口
type ReconcileHandler struct {
	service *service.ReconcileService
	logger  *logger.Logger
	started time.Time
}

// NewReconcileHandler 创建匹配处理器
func NewReconcileHandler(svc *service.ReconcileService, log *logger.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		service: svc,
		logger:  log,
		started: time.Now(),
	}
}

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	URLs []string `json:"urls" binding:"required,min=1"`
}

// Reconcile 执行一次匹配任务
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var job model.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}

	outcome, err := h.service.Run(c.Request.Context(), &job)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidInput) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Errorf("任务 %s 执行失败: %v", job.ID, err)
		fail(c, http.StatusInternalServerError, "匹配失败: "+err.Error())
		return
	}

	message := "匹配完成"
	if !outcome.Result.Satisfied() {
		message = "匹配未完成"
	}
	success(c, outcome, message)
}

// Classify 对链接分类
func (h *ReconcileHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	success(c, h.service.Classify(req.URLs), "分类完成")
}

// Score 对单个候选评分，未提供的大小与时长视为未知
func (h *ReconcileHandler) Score(c *gin.Context) {
	in := reconcile.ScoreInput{Size: -1, Duration: -1}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "请求参数错误: "+err.Error())
		return
	}
	if in.Subtype != model.SubtypeMovie && in.Subtype != model.SubtypeSeries {
		fail(c, http.StatusBadRequest, "subtype 必须是 movie 或 series")
		return
	}
	success(c, h.service.Engine().Scorer().Score(in), "评分完成")
}

// Health 健康检查
func (h *ReconcileHandler) Health(c *gin.Context) {
	success(c, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}, "ok")
}
