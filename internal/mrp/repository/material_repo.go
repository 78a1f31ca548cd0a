package repository

import (
	"context"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"gorm.io/gorm"
)

type MaterialRepository struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) Create(ctx context.Context, m *entity.Material) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MaterialRepository) FindByID(ctx context.Context, id string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByIDWithBatches 获取物料及其全部批次（按采购日期、创建顺序排列）
func (r *MaterialRepository) FindByIDWithBatches(ctx context.Context, id string) (*entity.Material, error) {
	var m entity.Material
	err := r.db.WithContext(ctx).
		Preload("Batches", func(db *gorm.DB) *gorm.DB {
			return db.Order("purchase_date ASC, created_at ASC")
		}).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MaterialRepository) Update(ctx context.Context, m *entity.Material) error {
	return r.db.WithContext(ctx).Save(m).Error
}

type MaterialListParams struct {
	Category string
	ABCClass string
	Keyword  string
	Page     int
	Size     int
}

func (r *MaterialRepository) List(ctx context.Context, params MaterialListParams) ([]entity.Material, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Material{}).Where("deleted_at IS NULL")
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.ABCClass != "" {
		query = query.Where("abc_class = ?", params.ABCClass)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.Material
	err := query.Order("code ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).
		Find(&items).Error
	return items, total, err
}

// ListAll 获取全部物料（导出用）
func (r *MaterialRepository) ListAll(ctx context.Context) ([]entity.Material, error) {
	var items []entity.Material
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Order("code ASC").
		Find(&items).Error
	return items, err
}
