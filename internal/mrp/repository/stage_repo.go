package repository

import (
	"context"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"gorm.io/gorm"
)

type StageRepository struct {
	db *gorm.DB
}

func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

func (r *StageRepository) Create(ctx context.Context, p *entity.StageProgress) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *StageRepository) FindByID(ctx context.Context, id string) (*entity.StageProgress, error) {
	var p entity.StageProgress
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *StageRepository) Update(ctx context.Context, p *entity.StageProgress) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// ListByOrderProduct 获取订单行项的全部工序进度
func (r *StageRepository) ListByOrderProduct(ctx context.Context, orderProductID string) ([]entity.StageProgress, error) {
	var list []entity.StageProgress
	err := r.db.WithContext(ctx).
		Where("order_product_id = ?", orderProductID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ExistingStageIDs 返回订单行项已有进度记录的工序ID集合（幂等初始化用）
func (r *StageRepository) ExistingStageIDs(ctx context.Context, orderProductID string) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.StageProgress{}).
		Where("order_product_id = ?", orderProductID).
		Pluck("stage_id", &ids).Error
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(ids))
	for _, id := range ids {
		existing[id] = true
	}
	return existing, nil
}
