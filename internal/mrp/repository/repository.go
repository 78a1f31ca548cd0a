package repository

import "gorm.io/gorm"

// Repositories MRP 仓库集合
type Repositories struct {
	Material   *MaterialRepository
	Batch      *BatchRepository
	Allocation *AllocationRepository
	Purchase   *PurchaseRepository
	Stage      *StageRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Material:   NewMaterialRepository(db),
		Batch:      NewBatchRepository(db),
		Allocation: NewAllocationRepository(db),
		Purchase:   NewPurchaseRepository(db),
		Stage:      NewStageRepository(db),
	}
}
