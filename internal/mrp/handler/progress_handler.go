package handler

import (
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	svc *service.ProgressService
}

func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

type initializeProgressRequest struct {
	Stages     []service.StageRef `json:"stages" binding:"required,min=1"`
	TotalUnits int                `json:"total_units" binding:"required,gt=0"`
}

// Initialize POST /order-products/:id/stage-progress
func (h *ProgressHandler) Initialize(c *gin.Context) {
	var req initializeProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	stages, err := h.svc.Initialize(c.Request.Context(), c.Param("id"), req.Stages, req.TotalUnits)
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, gin.H{"items": stages})
}

// Update PUT /stage-progress/:id
func (h *ProgressHandler) Update(c *gin.Context) {
	var req service.UpdateStageProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, p)
}

// Progress GET /order-products/:id/progress
func (h *ProgressHandler) Progress(c *gin.Context) {
	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, progress)
}
