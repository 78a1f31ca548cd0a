package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProcurementService 采购服务
// 下采购订单的同时生成一个未到货批次：有确认交期的记为 expected，
// 否则记为 requested。这部分量计入预期库存而非可用库存。
type ProcurementService struct {
	purchaseRepo *repository.PurchaseRepository
	ledger       *LedgerService
	db           *gorm.DB
}

func NewProcurementService(purchaseRepo *repository.PurchaseRepository, ledger *LedgerService, db *gorm.DB) *ProcurementService {
	return &ProcurementService{purchaseRepo: purchaseRepo, ledger: ledger, db: db}
}

type RecordPurchaseOrderRequest struct {
	MaterialID       string     `json:"material_id" binding:"required"`
	Quantity         float64    `json:"quantity" binding:"required,gt=0"`
	CostPerUnit      float64    `json:"cost_per_unit" binding:"required,gt=0"`
	Vendor           string     `json:"vendor"`
	ExpectedDelivery *time.Time `json:"expected_delivery"`
	Notes            string     `json:"notes"`
}

// RecordPurchaseOrder 登记采购订单并生成对应批次
// 批次和采购订单在同一事务内落库，任何一步失败则整体回滚。
func (s *ProcurementService) RecordPurchaseOrder(ctx context.Context, req RecordPurchaseOrderRequest, userID string) (*entity.PurchaseOrder, *entity.MaterialBatch, error) {
	if req.Quantity <= 0 {
		return nil, nil, newValidationError("quantity", "采购数量必须大于0")
	}
	if req.CostPerUnit <= 0 {
		return nil, nil, newValidationError("cost_per_unit", "单价必须大于0")
	}

	now := time.Now()
	status := entity.POStatusRequested
	batchStatus := entity.BatchStatusRequested
	if req.ExpectedDelivery != nil {
		status = entity.POStatusExpected
		batchStatus = entity.BatchStatusExpected
	}

	var (
		po    *entity.PurchaseOrder
		batch *entity.MaterialBatch
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.ledger.AddBatchTx(tx, req.MaterialID, BatchDraft{
			InitialStock: req.Quantity,
			CostPerUnit:  req.CostPerUnit,
			PurchaseDate: now,
			Status:       batchStatus,
		})
		if err != nil {
			return err
		}

		po = &entity.PurchaseOrder{
			ID:               uuid.New().String(),
			POCode:           fmt.Sprintf("PO-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
			MaterialID:       req.MaterialID,
			BatchID:          batch.ID,
			Quantity:         req.Quantity,
			CostPerUnit:      req.CostPerUnit,
			TotalCost:        req.Quantity * req.CostPerUnit,
			Vendor:           req.Vendor,
			Status:           status,
			OrderDate:        now,
			ExpectedDelivery: req.ExpectedDelivery,
			Notes:            req.Notes,
			CreatedBy:        userID,
		}
		if err := s.purchaseRepo.CreateTx(tx, po); err != nil {
			return fmt.Errorf("创建采购订单失败: %w", err)
		}
		return refreshDerived(tx, req.MaterialID)
	})
	if err != nil {
		return nil, nil, err
	}
	s.ledger.invalidateSummary(ctx, req.MaterialID)
	return po, batch, nil
}

// ReceivePurchaseOrder 收货
// 批次转为 received 并记录到货日期，预期库存变为在库库存。
func (s *ProcurementService) ReceivePurchaseOrder(ctx context.Context, poID string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.Status != entity.POStatusRequested && po.Status != entity.POStatusExpected && po.Status != entity.POStatusDelayed {
		return nil, newValidationError("status", "采购订单状态不允许收货: "+po.Status)
	}

	now := time.Now()
	if po.BatchID != "" {
		received := entity.BatchStatusReceived
		if _, err := s.ledger.UpdateBatch(ctx, po.MaterialID, po.BatchID, UpdateBatchRequest{
			Status:        &received,
			DeliveredDate: &now,
		}); err != nil {
			return nil, err
		}
	}

	po.Status = entity.POStatusReceived
	po.ReceivedDate = &now
	if err := s.purchaseRepo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return po, nil
}

// MarkDelayed 供应商延期，批次转为 delayed
func (s *ProcurementService) MarkDelayed(ctx context.Context, poID string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.Status != entity.POStatusRequested && po.Status != entity.POStatusExpected {
		return nil, newValidationError("status", "采购订单状态不允许标记延期: "+po.Status)
	}

	if po.BatchID != "" {
		delayed := entity.BatchStatusDelayed
		if _, err := s.ledger.UpdateBatch(ctx, po.MaterialID, po.BatchID, UpdateBatchRequest{
			Status: &delayed,
		}); err != nil {
			return nil, err
		}
	}

	po.Status = entity.POStatusDelayed
	if err := s.purchaseRepo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return po, nil
}

// CancelPurchaseOrder 取消采购订单并删除对应的未到货批次
func (s *ProcurementService) CancelPurchaseOrder(ctx context.Context, poID string) (*entity.PurchaseOrder, error) {
	po, err := s.findPO(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.Status == entity.POStatusReceived || po.Status == entity.POStatusCancelled {
		return nil, newValidationError("status", "采购订单状态不允许取消: "+po.Status)
	}

	if po.BatchID != "" {
		if err := s.ledger.DeleteBatch(ctx, po.MaterialID, po.BatchID); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	po.Status = entity.POStatusCancelled
	if err := s.purchaseRepo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("更新采购订单失败: %w", err)
	}
	return po, nil
}

func (s *ProcurementService) List(ctx context.Context, params repository.POListParams) ([]entity.PurchaseOrder, int64, error) {
	return s.purchaseRepo.List(ctx, params)
}

func (s *ProcurementService) findPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("采购订单 %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return po, nil
}
