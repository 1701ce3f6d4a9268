package handler

import (
	"net/http"
	"strconv"

	"vtt-fusion/app/database"
	"vtt-fusion/app/logger"
	"vtt-fusion/app/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RunsHandler 查询批量运行历史
type RunsHandler struct {
	logger   *logger.Logger
	response *ResponseHelper
}

// NewRunsHandler 创建新的 RunsHandler
func NewRunsHandler(log *logger.Logger) *RunsHandler {
	return &RunsHandler{
		logger:   log,
		response: NewResponseHelper(),
	}
}

// GetRuns 分页查询运行历史，按开始时间倒序
func (h *RunsHandler) GetRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	var runs []model.BatchRun
	if err := database.GetDB().Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		h.logger.Errorf("查询运行历史失败: %v", err)
		c.JSON(http.StatusInternalServerError, h.response.Error(http.StatusInternalServerError, "查询运行历史失败"))
		return
	}

	c.JSON(http.StatusOK, h.response.Success(runs, "查询成功"))
}

// GetRun 按运行标识查询单次运行
func (h *RunsHandler) GetRun(c *gin.Context) {
	runID := c.Param("run_id")

	var run model.BatchRun
	if err := database.GetDB().Where("run_id = ?", runID).First(&run).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, h.response.Error(http.StatusNotFound, "运行记录不存在"))
			return
		}
		h.logger.Errorf("查询运行记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, h.response.Error(http.StatusInternalServerError, "查询运行记录失败"))
		return
	}

	c.JSON(http.StatusOK, h.response.Success(run, "查询成功"))
}
