package entity

import (
	"time"
)

// StageProgress 工序进度
// 按订单行项 × 工艺路线工序记录件数，硬性不变量：
// yet_to_start + in_progress + completed == total，且四个字段均 ≥ 0。
// (order_product_id, stage_id) 唯一，首次观察到带工艺路线的行项时惰性创建。
type StageProgress struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderProductID  string    `json:"order_product_id" gorm:"size:64;not null;uniqueIndex:uniq_stage_order_product;index"`
	StageID         string    `json:"stage_id" gorm:"size:64;not null;uniqueIndex:uniq_stage_order_product"`
	StageName       string    `json:"stage_name" gorm:"size:128"`
	YetToStartUnits int       `json:"yet_to_start_units" gorm:"not null;default:0"`
	InProgressUnits int       `json:"in_progress_units" gorm:"not null;default:0"`
	CompletedUnits  int       `json:"completed_units" gorm:"not null;default:0"`
	TotalUnits      int       `json:"total_units" gorm:"not null"` // 创建时固定为行项订购数量
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (StageProgress) TableName() string {
	return "mrp_order_stage_progress"
}

// Consistent 校验件数守恒
func (p *StageProgress) Consistent() bool {
	if p.YetToStartUnits < 0 || p.InProgressUnits < 0 || p.CompletedUnits < 0 {
		return false
	}
	return p.YetToStartUnits+p.InProgressUnits+p.CompletedUnits == p.TotalUnits
}
