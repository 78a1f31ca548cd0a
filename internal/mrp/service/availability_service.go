package service

import (
	"context"
	"fmt"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AvailabilityService 可用性判定引擎
// 纯粹基于批次台账和占用记录判定订单物料需求能否满足，本身不持久化
// 任何状态；订单级结论由外部订单工作流保存。读操作不要求与并发写
// 线性一致，陈旧的 booked 结论会在执行分配时重新校验。
type AvailabilityService struct {
	batchRepo      *repository.BatchRepository
	allocationRepo *repository.AllocationRepository
	db             *gorm.DB
}

func NewAvailabilityService(batchRepo *repository.BatchRepository, allocationRepo *repository.AllocationRepository, db *gorm.DB) *AvailabilityService {
	return &AvailabilityService{batchRepo: batchRepo, allocationRepo: allocationRepo, db: db}
}

// MaterialRequirement 物料需求（由订单行项 × 配方BOM在外部展开）
type MaterialRequirement struct {
	MaterialID string  `json:"material_id" binding:"required"`
	Quantity   float64 `json:"quantity" binding:"required,gt=0"`
}

// MaterialVerdict 单物料判定明细
type MaterialVerdict struct {
	MaterialID string  `json:"material_id"`
	Required   float64 `json:"required"`
	Available  float64 `json:"available"` // 在库总量 - 全部占用
	Status     string  `json:"status"`
}

// verdictRank 状态排序，值越大越差
var verdictRank = map[string]int{
	entity.StatusBooked:    0,
	entity.StatusExpected:  1,
	entity.StatusRequested: 2,
	entity.StatusDelayed:   3,
	entity.StatusNotEnough: 4,
}

// CheckAvailability 判定一组物料需求
// 订单级状态取所有物料中最差的：一种物料缺货就阻塞整个订单。
func (s *AvailabilityService) CheckAvailability(ctx context.Context, reqs []MaterialRequirement) (string, []MaterialVerdict, error) {
	if len(reqs) == 0 {
		return "", nil, newValidationError("materials", "物料需求不能为空")
	}

	verdicts := make([]MaterialVerdict, 0, len(reqs))
	orderStatus := entity.StatusBooked
	for _, req := range reqs {
		if req.Quantity <= 0 {
			return "", nil, newValidationError("quantity", "需求数量必须大于0")
		}
		v, err := s.checkOne(ctx, req)
		if err != nil {
			return "", nil, err
		}
		verdicts = append(verdicts, *v)
		if verdictRank[v.Status] > verdictRank[orderStatus] {
			orderStatus = v.Status
		}
	}
	return orderStatus, verdicts, nil
}

func (s *AvailabilityService) checkOne(ctx context.Context, req MaterialRequirement) (*MaterialVerdict, error) {
	onHand, err := s.batchRepo.OnHandStock(ctx, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("读取在库总量失败: %w", err)
	}
	allocated, err := s.allocationRepo.TotalAllocated(ctx, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("读取占用总量失败: %w", err)
	}

	available := onHand - allocated
	verdict := &MaterialVerdict{
		MaterialID: req.MaterialID,
		Required:   req.Quantity,
		Available:  available,
	}
	if available >= req.Quantity {
		verdict.Status = entity.StatusBooked
		return verdict, nil
	}

	// 缺口能否由在途批次补上
	shortfall := req.Quantity - available
	pending, err := s.batchRepo.ListPending(ctx, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("读取在途批次失败: %w", err)
	}

	coveredBy := ""
	hasRequested := false
	for _, b := range pending {
		switch b.Status {
		case entity.BatchStatusExpected, entity.BatchStatusDelayed:
			if b.InitialStock >= shortfall {
				// 同时存在能覆盖缺口的 expected 和 delayed 批次时报 expected
				if coveredBy == "" || b.Status == entity.BatchStatusExpected {
					coveredBy = b.Status
				}
			}
		case entity.BatchStatusRequested:
			hasRequested = true
		}
	}

	switch {
	case coveredBy != "":
		verdict.Status = coveredBy
	case hasRequested:
		verdict.Status = entity.StatusRequested
	default:
		verdict.Status = entity.StatusNotEnough
	}
	return verdict, nil
}

// ReserveForOrder 判定并为订单登记占用
// 非最终结论（booked/expected/delayed/requested）都会落一条占用记录，
// 订单取消时删除，物理分配执行后转为批次扣减。重复调用先清掉该订单
// 旧的占用再重算，保证幂等。判定先于任何写操作，清理和重建在同一事务
// 内完成，校验失败时已有占用原样保留。
func (s *AvailabilityService) ReserveForOrder(ctx context.Context, orderID string, reqs []MaterialRequirement) (string, []MaterialVerdict, error) {
	if orderID == "" {
		return "", nil, newValidationError("order_id", "订单ID不能为空")
	}

	status, verdicts, err := s.CheckAvailability(ctx, reqs)
	if err != nil {
		return "", nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.allocationRepo.DeleteByOrderTx(tx, orderID); err != nil {
			return fmt.Errorf("清理旧占用失败: %w", err)
		}
		for _, v := range verdicts {
			if v.Status == entity.StatusNotEnough {
				continue // 缺货的物料没有可占用的对象
			}
			a := &entity.MaterialAllocation{
				ID:             uuid.New().String(),
				OrderID:        orderID,
				MaterialID:     v.MaterialID,
				Quantity:       v.Required,
				AllocationType: allocationTypeFor(v.Status),
			}
			if err := s.allocationRepo.CreateTx(tx, a); err != nil {
				return fmt.Errorf("登记占用失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return status, verdicts, nil
}

// allocationTypeFor 判定结果到占用类型的映射；延期在途仍按在途占用
func allocationTypeFor(status string) string {
	switch status {
	case entity.StatusBooked:
		return entity.AllocationTypeBooked
	case entity.StatusRequested:
		return entity.AllocationTypeRequested
	default:
		return entity.AllocationTypeExpected
	}
}

// ReleaseOrder 订单取消，释放全部占用
func (s *AvailabilityService) ReleaseOrder(ctx context.Context, orderID string) error {
	if orderID == "" {
		return newValidationError("order_id", "订单ID不能为空")
	}
	if err := s.allocationRepo.DeleteByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("释放占用失败: %w", err)
	}
	return nil
}

// OrderAllocations 查询订单当前占用
func (s *AvailabilityService) OrderAllocations(ctx context.Context, orderID string) ([]entity.MaterialAllocation, error) {
	return s.allocationRepo.ListByOrder(ctx, orderID)
}

// MaterialAllocationView 物料占用视图
type MaterialAllocationView struct {
	MaterialID string                      `json:"material_id"`
	Booked     float64                     `json:"booked"`
	Items      []entity.MaterialAllocation `json:"items"`
}

// AllocationsForMaterial 查询某物料当前被哪些订单占用
func (s *AvailabilityService) AllocationsForMaterial(ctx context.Context, materialID string) (*MaterialAllocationView, error) {
	items, err := s.allocationRepo.AllocationsFor(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("读取占用记录失败: %w", err)
	}
	booked, err := s.allocationRepo.BookedQuantity(ctx, materialID)
	if err != nil {
		return nil, fmt.Errorf("读取已预订数量失败: %w", err)
	}
	return &MaterialAllocationView{MaterialID: materialID, Booked: booked, Items: items}, nil
}
