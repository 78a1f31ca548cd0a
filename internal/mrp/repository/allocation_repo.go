package repository

import (
	"context"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"gorm.io/gorm"
)

type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// CreateTx 在事务内登记占用
func (r *AllocationRepository) CreateTx(tx *gorm.DB, a *entity.MaterialAllocation) error {
	return tx.Create(a).Error
}

// AllocationsFor 获取某物料的全部占用记录
func (r *AllocationRepository) AllocationsFor(ctx context.Context, materialID string) ([]entity.MaterialAllocation, error) {
	var list []entity.MaterialAllocation
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// ListByOrder 获取某订单的全部占用记录
func (r *AllocationRepository) ListByOrder(ctx context.Context, orderID string) ([]entity.MaterialAllocation, error) {
	var list []entity.MaterialAllocation
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

// BookedQuantity 已预订数量之和
func (r *AllocationRepository) BookedQuantity(ctx context.Context, materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity), 0) AS total
		FROM mrp_material_allocations
		WHERE material_id = ? AND allocation_type = ?
	`, materialID, entity.AllocationTypeBooked).Scan(&result).Error
	return result.Total, err
}

// TotalAllocated 全部占用类型数量之和
func (r *AllocationRepository) TotalAllocated(ctx context.Context, materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(quantity), 0) AS total
		FROM mrp_material_allocations
		WHERE material_id = ?
	`, materialID).Scan(&result).Error
	return result.Total, err
}

// DeleteByOrder 删除某订单的全部占用（订单取消）
func (r *AllocationRepository) DeleteByOrder(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Delete(&entity.MaterialAllocation{}, "order_id = ?", orderID).Error
}

// DeleteByOrderTx 在事务内删除某订单的全部占用（重算占用前清理）
func (r *AllocationRepository) DeleteByOrderTx(tx *gorm.DB, orderID string) error {
	return tx.Delete(&entity.MaterialAllocation{}, "order_id = ?", orderID).Error
}

// DeleteByOrderAndMaterial 删除订单在某物料上的占用（预留转为物理扣减时）
func (r *AllocationRepository) DeleteByOrderAndMaterial(tx *gorm.DB, orderID, materialID string) error {
	return tx.Delete(&entity.MaterialAllocation{},
		"order_id = ? AND material_id = ?", orderID, materialID).Error
}

func (r *AllocationRepository) CreateDraw(tx *gorm.DB, d *entity.AllocationDraw) error {
	return tx.Create(d).Error
}

// ListDrawsByOrder 获取订单的分配扣减流水
func (r *AllocationRepository) ListDrawsByOrder(ctx context.Context, orderID string) ([]entity.AllocationDraw, error) {
	var draws []entity.AllocationDraw
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&draws).Error
	return draws, err
}
