package entity

import (
	"time"
)

// PurchaseOrderStatus 采购订单状态
const (
	POStatusRequested = "requested" // 已下单，未确认交期
	POStatusExpected  = "expected"  // 供应商已确认交期
	POStatusDelayed   = "delayed"   // 已延期
	POStatusReceived  = "received"  // 已收货
	POStatusCancelled = "cancelled"
)

// PurchaseOrder 采购订单
// 创建时会同步生成一个 requested/expected 状态的批次，
// 代表尚未到货但可计入预期的库存。
type PurchaseOrder struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	POCode           string     `json:"po_code" gorm:"size:50;not null;uniqueIndex"`
	MaterialID       string     `json:"material_id" gorm:"type:uuid;not null;index"`
	BatchID          string     `json:"batch_id" gorm:"type:uuid"` // 关联生成的批次
	Quantity         float64    `json:"quantity" gorm:"type:decimal(12,4);not null"`
	CostPerUnit      float64    `json:"cost_per_unit" gorm:"type:decimal(12,4);not null"`
	TotalCost        float64    `json:"total_cost" gorm:"type:decimal(12,2);not null"`
	Vendor           string     `json:"vendor" gorm:"size:128"`
	Status           string     `json:"status" gorm:"size:20;not null;default:requested"`
	OrderDate        time.Time  `json:"order_date"`
	ExpectedDelivery *time.Time `json:"expected_delivery"`
	ReceivedDate     *time.Time `json:"received_date"`
	Notes            string     `json:"notes" gorm:"type:text"`
	CreatedBy        string     `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at" gorm:"index"`
}

func (PurchaseOrder) TableName() string {
	return "mrp_purchase_orders"
}
