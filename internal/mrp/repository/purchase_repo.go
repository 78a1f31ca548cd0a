package repository

import (
	"context"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// CreateTx 在事务内创建采购订单，与对应批次一起落库
func (r *PurchaseRepository) CreateTx(tx *gorm.DB, po *entity.PurchaseOrder) error {
	return tx.Create(po).Error
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseRepository) Update(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Save(po).Error
}

type POListParams struct {
	MaterialID string
	Status     string
	Vendor     string
	Page       int
	Size       int
}

func (r *PurchaseRepository) List(ctx context.Context, params POListParams) ([]entity.PurchaseOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{}).Where("deleted_at IS NULL")
	if params.MaterialID != "" {
		query = query.Where("material_id = ?", params.MaterialID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Vendor != "" {
		query = query.Where("vendor ILIKE ?", "%"+params.Vendor+"%")
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.PurchaseOrder
	err := query.Order("order_date DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&items).Error
	return items, total, err
}
