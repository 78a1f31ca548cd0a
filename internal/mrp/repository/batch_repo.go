package repository

import (
	"context"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) FindByID(ctx context.Context, id string) (*entity.MaterialBatch, error) {
	var b entity.MaterialBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BatchRepository) Update(ctx context.Context, b *entity.MaterialBatch) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.MaterialBatch{}, "id = ?", id).Error
}

// ListByMaterial 获取物料的全部批次，按采购日期和创建顺序排列
func (r *BatchRepository) ListByMaterial(ctx context.Context, materialID string) ([]entity.MaterialBatch, error) {
	var batches []entity.MaterialBatch
	err := r.db.WithContext(ctx).
		Where("material_id = ?", materialID).
		Order("purchase_date ASC, created_at ASC").
		Find(&batches).Error
	return batches, err
}

// OnHandStock 实物在库总量：received 批次的剩余量之和
func (r *BatchRepository) OnHandStock(ctx context.Context, materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(remaining_stock), 0) AS total
		FROM mrp_material_batches
		WHERE material_id = ? AND status = ?
	`, materialID, entity.BatchStatusReceived).Scan(&result).Error
	return result.Total, err
}

// PendingStock 未到货总量：requested/expected/delayed 批次的剩余量之和
func (r *BatchRepository) PendingStock(ctx context.Context, materialID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(remaining_stock), 0) AS total
		FROM mrp_material_batches
		WHERE material_id = ? AND status IN (?, ?, ?)
	`, materialID, entity.BatchStatusRequested, entity.BatchStatusExpected, entity.BatchStatusDelayed).Scan(&result).Error
	return result.Total, err
}

// ListPending 获取未到货批次（判定 expected/delayed/requested 状态用）
func (r *BatchRepository) ListPending(ctx context.Context, materialID string) ([]entity.MaterialBatch, error) {
	var batches []entity.MaterialBatch
	err := r.db.WithContext(ctx).
		Where("material_id = ? AND status IN (?, ?, ?)",
			materialID, entity.BatchStatusRequested, entity.BatchStatusExpected, entity.BatchStatusDelayed).
		Order("purchase_date ASC, created_at ASC").
		Find(&batches).Error
	return batches, err
}

// LockConsumable 在事务内按 FIFO 顺序锁定可消耗批次。
// FOR UPDATE 行锁使并发执行的分配按物料串行化，同购入日期按创建顺序消耗。
func (r *BatchRepository) LockConsumable(tx *gorm.DB, materialID string) ([]entity.MaterialBatch, error) {
	var batches []entity.MaterialBatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("material_id = ? AND status = ? AND remaining_stock > 0",
			materialID, entity.BatchStatusReceived).
		Order("purchase_date ASC, created_at ASC").
		Find(&batches).Error
	return batches, err
}
