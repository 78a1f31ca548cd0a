package handler

import (
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/gin-gonic/gin"
)

type AllocationHandler struct {
	availability *service.AvailabilityService
	allocation   *service.AllocationService
}

func NewAllocationHandler(availability *service.AvailabilityService, allocation *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{availability: availability, allocation: allocation}
}

type checkRequest struct {
	Materials []service.MaterialRequirement `json:"materials" binding:"required,min=1"`
}

// Check POST /availability/check
func (h *AllocationHandler) Check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	status, verdicts, err := h.availability.CheckAvailability(c.Request.Context(), req.Materials)
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, gin.H{"status": status, "materials": verdicts})
}

// Reserve POST /orders/:orderId/reserve
func (h *AllocationHandler) Reserve(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	status, verdicts, err := h.availability.ReserveForOrder(c.Request.Context(), c.Param("orderId"), req.Materials)
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, gin.H{"status": status, "materials": verdicts})
}

// Release DELETE /orders/:orderId/allocations（订单取消）
func (h *AllocationHandler) Release(c *gin.Context) {
	if err := h.availability.ReleaseOrder(c.Request.Context(), c.Param("orderId")); err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}

// ListAllocations GET /orders/:orderId/allocations
func (h *AllocationHandler) ListAllocations(c *gin.Context) {
	list, err := h.availability.OrderAllocations(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": list})
}

// MaterialAllocations GET /materials/:id/allocations 物料当前被哪些订单占用
func (h *AllocationHandler) MaterialAllocations(c *gin.Context) {
	view, err := h.availability.AllocationsForMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, view)
}

// Allocate POST /orders/:orderId/allocate
// 库存不足回 40900，外部工作流重新校验可用性后决定是否重试。
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	result, err := h.allocation.Allocate(c.Request.Context(), c.Param("orderId"), req.Materials, GetUserID(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, result)
}

// Draws GET /orders/:orderId/draws 分配扣减流水
func (h *AllocationHandler) Draws(c *gin.Context) {
	draws, err := h.allocation.DrawsByOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": draws})
}
