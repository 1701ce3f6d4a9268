package handler

import (
	"net/http"

	"vtt-fusion/app/logger"
	"vtt-fusion/app/service"

	"github.com/gin-gonic/gin"
)

// BatchHandler 处理批量转写触发请求
type BatchHandler struct {
	logger   *logger.Logger
	svc      *service.BatchService
	response *ResponseHelper
}

// NewBatchHandler 创建新的 BatchHandler
func NewBatchHandler(log *logger.Logger, svc *service.BatchService) *BatchHandler {
	return &BatchHandler{
		logger:   log,
		svc:      svc,
		response: NewResponseHelper(),
	}
}

// GenerateVTT 同步执行一次批量转写并返回汇总
// 详细的单文件失败原因只进运行日志，不出现在响应里
func (h *BatchHandler) GenerateVTT(c *gin.Context) {
	summary, err := h.svc.Run(c.Request.Context())
	if err != nil {
		h.logger.Errorf("批量转写运行失败: %v", err)
		c.JSON(http.StatusInternalServerError, h.response.Error(http.StatusInternalServerError, "批量转写运行失败"))
		return
	}

	c.JSON(http.StatusOK, h.response.Success(summary, "批量转写完成"))
}
