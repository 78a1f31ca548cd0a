package service

import (
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services MRP 服务集合
type Services struct {
	Ledger       *LedgerService
	Availability *AvailabilityService
	Allocation   *AllocationService
	Procurement  *ProcurementService
	Progress     *ProgressService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client) *Services {
	ledger := NewLedgerService(repos.Material, repos.Batch, db, rdb)
	return &Services{
		Ledger:       ledger,
		Availability: NewAvailabilityService(repos.Batch, repos.Allocation, db),
		Allocation:   NewAllocationService(repos.Batch, repos.Allocation, ledger, db),
		Procurement:  NewProcurementService(repos.Purchase, ledger, db),
		Progress:     NewProgressService(repos.Stage),
	}
}
