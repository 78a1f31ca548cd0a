package handler

import (
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/gin-gonic/gin"
)

type MaterialHandler struct {
	svc *service.LedgerService
}

func NewMaterialHandler(svc *service.LedgerService) *MaterialHandler {
	return &MaterialHandler{svc: svc}
}

// Create POST /materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var req service.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.CreateMaterial(c.Request.Context(), req)
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, m)
}

// List GET /materials
func (h *MaterialHandler) List(c *gin.Context) {
	page, size := GetPagination(c)
	params := repository.MaterialListParams{
		Category: c.Query("category"),
		ABCClass: c.Query("abc_class"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     size,
	}
	items, total, err := h.svc.ListMaterials(c.Request.Context(), params)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"items": items, "total": total, "page": page, "size": size})
}

// Get GET /materials/:id（含批次和派生汇总）
func (h *MaterialHandler) Get(c *gin.Context) {
	m, err := h.svc.GetMaterial(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, m)
}

// Summary GET /materials/:id/summary
func (h *MaterialHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, summary)
}

// Export GET /materials/export 导出台账Excel
func (h *MaterialHandler) Export(c *gin.Context) {
	f, err := h.svc.ExportLedger(c.Request.Context())
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\"material_ledger.xlsx\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write ledger: "+err.Error())
	}
}

// AddBatch POST /materials/:id/batches
func (h *MaterialHandler) AddBatch(c *gin.Context) {
	var draft service.BatchDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, err.Error())
		return
	}
	batch, err := h.svc.AddBatch(c.Request.Context(), c.Param("id"), draft)
	if err != nil {
		FromError(c, err)
		return
	}
	Created(c, batch)
}

// UpdateBatch PUT /materials/:id/batches/:batchId
func (h *MaterialHandler) UpdateBatch(c *gin.Context) {
	var req service.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	batch, err := h.svc.UpdateBatch(c.Request.Context(), c.Param("id"), c.Param("batchId"), req)
	if err != nil {
		FromError(c, err)
		return
	}
	Success(c, batch)
}

// DeleteBatch DELETE /materials/:id/batches/:batchId
func (h *MaterialHandler) DeleteBatch(c *gin.Context) {
	if err := h.svc.DeleteBatch(c.Request.Context(), c.Param("id"), c.Param("batchId")); err != nil {
		FromError(c, err)
		return
	}
	Success(c, nil)
}
