package entity

import (
	"time"
)

// AllocationType 占用类型
const (
	AllocationTypeBooked    = "booked"    // 库存充足，已预订
	AllocationTypeRequested = "requested" // 依赖已申购批次
	AllocationTypeExpected  = "expected"  // 依赖在途批次
)

// OrderMaterialStatus 订单物料状态（可用性判定结果）
// 排序从差到好：not enough > delayed > requested > expected > booked，
// 订单级状态取所有物料中最差的一个。
const (
	StatusBooked    = "booked"
	StatusExpected  = "expected"
	StatusRequested = "requested"
	StatusDelayed   = "delayed"
	StatusNotEnough = "not enough"
)

// MaterialAllocation 物料占用记录
// 对库存的逻辑预留，独立于批次的物理扣减；订单取消时删除，
// 物理分配执行后转为批次扣减并删除。
type MaterialAllocation struct {
	ID             string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID        string    `json:"order_id" gorm:"size:64;not null;index"`
	MaterialID     string    `json:"material_id" gorm:"type:uuid;not null;index"`
	Quantity       float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	AllocationType string    `json:"allocation_type" gorm:"size:20;not null;default:booked"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (MaterialAllocation) TableName() string {
	return "mrp_material_allocations"
}

// AllocationDraw 分配扣减流水
// 每次从某个批次实际扣减都会留痕，用于审计和对账。
type AllocationDraw struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID     string    `json:"order_id" gorm:"size:64;not null;index"`
	MaterialID  string    `json:"material_id" gorm:"type:uuid;not null;index"`
	BatchID     string    `json:"batch_id" gorm:"type:uuid;not null"`
	BatchNumber string    `json:"batch_number" gorm:"size:20"`
	Quantity    float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitCost    float64   `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	CreatedBy   string    `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AllocationDraw) TableName() string {
	return "mrp_allocation_draws"
}
