package handler

import (
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/gin-gonic/gin"
)

type ProcurementHandler struct {
	svc *service.ProcurementService
}

func NewProcurementHandler(svc *service.ProcurementService) *ProcurementHandler {
	return &ProcurementHandler{svc: svc}
}

// Create POST /purchase-orders
func (h *ProcurementHandler) Create(c *gin.Context) {
	var req service.RecordPurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	po, batch, err := h.svc.RecordPurchaseOrder(c.Request.Context(), req, GetUserID(c))
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, gin.H{"purchase_order": po, "batch": batch})
}

// List GET /purchase-orders
func (h *ProcurementHandler) List(c *gin.Context) {
	page, size := GetPagination(c)
	params := repository.POListParams{
		MaterialID: c.Query("material_id"),
		Status:     c.Query("status"),
		Vendor:     c.Query("vendor"),
		Page:       page,
		Size:       size,
	}
	items, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": items, "total": total, "page": page, "size": size})
}

// Receive POST /purchase-orders/:id/receive
func (h *ProcurementHandler) Receive(c *gin.Context) {
	po, err := h.svc.ReceivePurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, po)
}

// Delay POST /purchase-orders/:id/delay
func (h *ProcurementHandler) Delay(c *gin.Context) {
	po, err := h.svc.MarkDelayed(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, po)
}

// Cancel POST /purchase-orders/:id/cancel
func (h *ProcurementHandler) Cancel(c *gin.Context) {
	po, err := h.svc.CancelPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, po)
}
