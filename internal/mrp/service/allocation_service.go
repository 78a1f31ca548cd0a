package service

import (
	"context"
	"fmt"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AllocationService 分配执行器
// 把 booked 结论变成真实的批次消耗：按采购日期 FIFO 扣减批次剩余量，
// 同一订单的全部物料在一个事务里完成，任何一种物料不足则整单回滚。
// 批次行上的 FOR UPDATE 锁使并发订单对同一物料的分配串行化，不信任
// 陈旧的可用性结论，库存是否充足一律在锁内重新校验。
type AllocationService struct {
	batchRepo      *repository.BatchRepository
	allocationRepo *repository.AllocationRepository
	ledger         *LedgerService
	db             *gorm.DB
}

func NewAllocationService(batchRepo *repository.BatchRepository, allocationRepo *repository.AllocationRepository, ledger *LedgerService, db *gorm.DB) *AllocationService {
	return &AllocationService{
		batchRepo:      batchRepo,
		allocationRepo: allocationRepo,
		ledger:         ledger,
		db:             db,
	}
}

// MaterialDraws 单物料的扣减结果
type MaterialDraws struct {
	MaterialID string                  `json:"material_id"`
	Required   float64                 `json:"required"`
	Draws      []entity.AllocationDraw `json:"draws"`
}

// AllocationResult 整单分配结果
type AllocationResult struct {
	OrderID   string          `json:"order_id"`
	Materials []MaterialDraws `json:"materials"`
}

// Allocate 执行物理分配
func (s *AllocationService) Allocate(ctx context.Context, orderID string, reqs []MaterialRequirement, userID string) (*AllocationResult, error) {
	if orderID == "" {
		return nil, newValidationError("order_id", "订单ID不能为空")
	}
	if len(reqs) == 0 {
		return nil, newValidationError("materials", "物料需求不能为空")
	}
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, newValidationError("quantity", "需求数量必须大于0")
		}
	}

	result := &AllocationResult{OrderID: orderID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, req := range reqs {
			draws, err := s.allocateOne(tx, orderID, req, userID)
			if err != nil {
				return err
			}
			result.Materials = append(result.Materials, MaterialDraws{
				MaterialID: req.MaterialID,
				Required:   req.Quantity,
				Draws:      draws,
			})

			// 预留转为物理消耗，删掉该订单在此物料上的占用
			if err := s.allocationRepo.DeleteByOrderAndMaterial(tx, orderID, req.MaterialID); err != nil {
				return fmt.Errorf("清理占用失败: %w", err)
			}

			// 事务内同步刷新派生缓存
			if err := refreshDerived(tx, req.MaterialID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, req := range reqs {
		s.ledger.invalidateSummary(ctx, req.MaterialID)
	}
	return result, nil
}

// allocateOne 在事务内对单个物料做 FIFO 扣减
func (s *AllocationService) allocateOne(tx *gorm.DB, orderID string, req MaterialRequirement, userID string) ([]entity.AllocationDraw, error) {
	batches, err := s.batchRepo.LockConsumable(tx, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("锁定批次失败: %w", err)
	}

	// 锁内重新校验，不信任判定时的快照
	var available float64
	for _, b := range batches {
		available += b.RemainingStock
	}
	if available < req.Quantity {
		return nil, fmt.Errorf("物料 %s 需要 %.4f 可用 %.4f: %w",
			req.MaterialID, req.Quantity, available, ErrInsufficientStock)
	}

	remaining := req.Quantity
	var draws []entity.AllocationDraw
	for i := range batches {
		if remaining <= 0 {
			break
		}
		b := &batches[i]
		take := b.RemainingStock
		if take > remaining {
			take = remaining
		}
		b.RemainingStock -= take
		remaining -= take

		if err := tx.Save(b).Error; err != nil {
			return nil, fmt.Errorf("扣减批次 %s 失败: %w", b.BatchNumber, err)
		}

		draw := entity.AllocationDraw{
			ID:          uuid.New().String(),
			OrderID:     orderID,
			MaterialID:  req.MaterialID,
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
			UnitCost:    b.CostPerUnit,
			CreatedBy:   userID,
		}
		if err := s.allocationRepo.CreateDraw(tx, &draw); err != nil {
			return nil, fmt.Errorf("记录扣减流水失败: %w", err)
		}
		draws = append(draws, draw)
	}
	return draws, nil
}

// DrawsByOrder 查询订单的扣减流水
func (s *AllocationService) DrawsByOrder(ctx context.Context, orderID string) ([]entity.AllocationDraw, error) {
	return s.allocationRepo.ListDrawsByOrder(ctx, orderID)
}
