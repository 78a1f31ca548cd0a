package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有MRP表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 物料与批次
		&Material{},
		&MaterialBatch{},

		// 占用与分配流水
		&MaterialAllocation{},
		&AllocationDraw{},

		// 采购
		&PurchaseOrder{},

		// 生产进度
		&StageProgress{},
	)
}
