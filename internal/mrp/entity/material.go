package entity

import (
	"time"
)

// ABCClass 物料ABC分类
const (
	ABCClassA = "A" // 高价值，严格管控
	ABCClassB = "B"
	ABCClassC = "C" // 默认
)

// BatchStatus 批次状态
const (
	BatchStatusRequested = "requested" // 已申购，未确认交期
	BatchStatusExpected  = "expected"  // 在途，有预计到货日期
	BatchStatusDelayed   = "delayed"   // 在途但已延期
	BatchStatusReceived  = "received"  // 已到货，实物在库
)

// Material 原材料
// Stock 和 CostPerUnit 是派生字段：由有效批次重新计算后写回，作为缓存，
// 不允许直接修改。
type Material struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string     `json:"code" gorm:"size:64;uniqueIndex"`
	Name        string     `json:"name" gorm:"size:128;not null"`
	Category    string     `json:"category" gorm:"size:64"`
	Unit        string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	Vendor      string     `json:"vendor" gorm:"size:128"`
	ABCClass    string     `json:"abc_class" gorm:"size:1;not null;default:C"`
	Stock       float64    `json:"stock" gorm:"type:decimal(12,4);default:0"`         // 派生：在库批次剩余量之和
	CostPerUnit float64    `json:"cost_per_unit" gorm:"type:decimal(12,4);default:0"` // 派生：加权平均单价
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Batches []MaterialBatch `json:"batches,omitempty" gorm:"foreignKey:MaterialID"`
}

func (Material) TableName() string {
	return "mrp_materials"
}

// MaterialBatch 物料批次
// BatchNumber 非空才算有效批次；RemainingStock 只在分配扣减时单调递减，
// 修正 InitialStock 时会被重置。
type MaterialBatch struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MaterialID     string     `json:"material_id" gorm:"type:uuid;not null;index"`
	BatchNumber    string     `json:"batch_number" gorm:"size:20;index"`
	InitialStock   float64    `json:"initial_stock" gorm:"type:decimal(12,4);not null"`
	RemainingStock float64    `json:"remaining_stock" gorm:"type:decimal(12,4);not null"`
	CostPerUnit    float64    `json:"cost_per_unit" gorm:"type:decimal(12,4);not null"`
	PurchaseDate   time.Time  `json:"purchase_date" gorm:"not null;index"`
	DeliveredDate  *time.Time `json:"delivered_date"`
	Status         string     `json:"status" gorm:"size:20;not null;default:received"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (MaterialBatch) TableName() string {
	return "mrp_material_batches"
}

// OnHand 是否为实物在库批次
func (b *MaterialBatch) OnHand() bool {
	return b.Status == BatchStatusReceived
}

// Pending 是否为未到货批次（申购/在途/延期）
func (b *MaterialBatch) Pending() bool {
	return b.Status == BatchStatusRequested || b.Status == BatchStatusExpected || b.Status == BatchStatusDelayed
}
