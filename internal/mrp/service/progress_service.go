package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressService 工序进度跟踪
// 件数守恒：yet_to_start + in_progress + completed == total 任何时刻成立，
// 违反守恒的更新直接拒绝、不产生任何变更。不同工序/行项之间相互独立，
// 可以并行更新，无需跨行锁。
type ProgressService struct {
	stageRepo *repository.StageRepository
}

func NewProgressService(stageRepo *repository.StageRepository) *ProgressService {
	return &ProgressService{stageRepo: stageRepo}
}

// StageRef 工艺路线工序引用
type StageRef struct {
	StageID   string `json:"stage_id" binding:"required"`
	StageName string `json:"stage_name"`
}

// Initialize 惰性初始化工序进度
// 首次观察到带配方和工艺路线的订单行项时调用；对已存在的
// (order_product_id, stage_id) 不重复创建，幂等。
func (s *ProgressService) Initialize(ctx context.Context, orderProductID string, stages []StageRef, totalUnits int) ([]entity.StageProgress, error) {
	if orderProductID == "" {
		return nil, newValidationError("order_product_id", "订单行项ID不能为空")
	}
	if totalUnits <= 0 {
		return nil, newValidationError("total_units", "总件数必须大于0")
	}
	if len(stages) == 0 {
		return nil, newValidationError("stages", "工序列表不能为空")
	}

	existing, err := s.stageRepo.ExistingStageIDs(ctx, orderProductID)
	if err != nil {
		return nil, fmt.Errorf("读取已有进度失败: %w", err)
	}

	for _, stage := range stages {
		if stage.StageID == "" {
			return nil, newValidationError("stage_id", "工序ID不能为空")
		}
		if existing[stage.StageID] {
			continue
		}
		p := &entity.StageProgress{
			ID:              uuid.New().String(),
			OrderProductID:  orderProductID,
			StageID:         stage.StageID,
			StageName:       stage.StageName,
			YetToStartUnits: totalUnits,
			TotalUnits:      totalUnits,
		}
		if err := s.stageRepo.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("创建工序进度失败: %w", err)
		}
	}

	return s.stageRepo.ListByOrderProduct(ctx, orderProductID)
}

// UpdateStageProgressRequest 进度更新，指针字段为空表示不变
type UpdateStageProgressRequest struct {
	YetToStart *int `json:"yet_to_start_units"`
	InProgress *int `json:"in_progress_units"`
	Completed  *int `json:"completed_units"`
}

// Update 更新工序进度
// in_progress 或 completed 变化时 yet_to_start 自动重算为
// total - in_progress - completed（下限 0）；三者之和超过 total 或出现
// 负数时拒绝。显式传入的 yet_to_start 必须让三者之和恰好等于 total。
func (s *ProgressService) Update(ctx context.Context, id string, req UpdateStageProgressRequest) (*entity.StageProgress, error) {
	p, err := s.stageRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("工序进度 %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	inProgress := p.InProgressUnits
	completed := p.CompletedUnits
	if req.InProgress != nil {
		inProgress = *req.InProgress
	}
	if req.Completed != nil {
		completed = *req.Completed
	}
	if inProgress < 0 || completed < 0 {
		return nil, newValidationError("units", "件数不能为负数")
	}
	if inProgress+completed > p.TotalUnits {
		return nil, newValidationError("units",
			fmt.Sprintf("在制 %d + 完工 %d 超过总件数 %d", inProgress, completed, p.TotalUnits))
	}

	yetToStart := p.TotalUnits - inProgress - completed
	if yetToStart < 0 {
		yetToStart = 0
	}
	if req.YetToStart != nil {
		// 显式指定时必须满足守恒
		if *req.YetToStart != p.TotalUnits-inProgress-completed {
			return nil, newValidationError("yet_to_start_units",
				fmt.Sprintf("待产 %d 与在制/完工不守恒，应为 %d", *req.YetToStart, p.TotalUnits-inProgress-completed))
		}
		yetToStart = *req.YetToStart
	}

	p.YetToStartUnits = yetToStart
	p.InProgressUnits = inProgress
	p.CompletedUnits = completed
	if !p.Consistent() {
		return nil, newValidationError("units", "件数守恒校验失败")
	}

	if err := s.stageRepo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("更新工序进度失败: %w", err)
	}
	return p, nil
}

// LineItemProgress 行项进度汇总
type LineItemProgress struct {
	OrderProductID string                 `json:"order_product_id"`
	CompletedUnits int                    `json:"completed_units"` // 各工序完工件数之和
	TotalUnits     int                    `json:"total_units"`     // 各工序总件数之和
	Completed      bool                   `json:"completed"`       // 所有工序全部完工
	Stages         []entity.StageProgress `json:"stages"`
}

// Progress 行项进度，外部订单工作流据此决定是否把行项标记为完工
func (s *ProgressService) Progress(ctx context.Context, orderProductID string) (*LineItemProgress, error) {
	stages, err := s.stageRepo.ListByOrderProduct(ctx, orderProductID)
	if err != nil {
		return nil, fmt.Errorf("读取工序进度失败: %w", err)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("订单行项 %s 无工序进度: %w", orderProductID, ErrNotFound)
	}

	result := &LineItemProgress{
		OrderProductID: orderProductID,
		Completed:      true,
		Stages:         stages,
	}
	for _, st := range stages {
		result.CompletedUnits += st.CompletedUnits
		result.TotalUnits += st.TotalUnits
		if st.CompletedUnits != st.TotalUnits {
			result.Completed = false
		}
	}
	return result, nil
}
