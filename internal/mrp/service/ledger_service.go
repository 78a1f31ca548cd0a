package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const summaryCacheTTL = 5 * time.Minute

// LedgerService 批次台账
// 维护物料的批次集合并暴露派生汇总：在库总量和加权平均单价。
// 派生值在每次批次写操作后重新计算并写回 Material 行作为缓存，
// 物料行上的 stock / cost_per_unit 永远不是独立的事实来源。
type LedgerService struct {
	materialRepo *repository.MaterialRepository
	batchRepo    *repository.BatchRepository
	db           *gorm.DB
	rdb          *redis.Client // 可为 nil，缓存是可选的
}

func NewLedgerService(materialRepo *repository.MaterialRepository, batchRepo *repository.BatchRepository, db *gorm.DB, rdb *redis.Client) *LedgerService {
	return &LedgerService{materialRepo: materialRepo, batchRepo: batchRepo, db: db, rdb: rdb}
}

type CreateMaterialRequest struct {
	Code     string `json:"code"`
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
	Vendor   string `json:"vendor"`
	ABCClass string `json:"abc_class"`
}

func (s *LedgerService) CreateMaterial(ctx context.Context, req CreateMaterialRequest) (*entity.Material, error) {
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	class := req.ABCClass
	if class == "" {
		class = entity.ABCClassC
	}
	if class != entity.ABCClassA && class != entity.ABCClassB && class != entity.ABCClassC {
		return nil, newValidationError("abc_class", "必须为 A/B/C")
	}

	m := &entity.Material{
		ID:       uuid.New().String(),
		Code:     req.Code,
		Name:     req.Name,
		Category: req.Category,
		Unit:     unit,
		Vendor:   req.Vendor,
		ABCClass: class,
	}
	if err := s.materialRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("创建物料失败: %w", err)
	}
	return m, nil
}

func (s *LedgerService) GetMaterial(ctx context.Context, id string) (*entity.Material, error) {
	m, err := s.materialRepo.FindByIDWithBatches(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("物料 %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

func (s *LedgerService) ListMaterials(ctx context.Context, params repository.MaterialListParams) ([]entity.Material, int64, error) {
	return s.materialRepo.List(ctx, params)
}

// TotalStock 在库总量：received 批次剩余量之和。
// requested/expected/delayed 批次的量只是预期，不计入可用池。
func (s *LedgerService) TotalStock(ctx context.Context, materialID string) (float64, error) {
	return s.batchRepo.OnHandStock(ctx, materialID)
}

// WeightedAverageCost 加权平均单价
// Σ(remaining×cost) / Σ(remaining)，只计批次号非空且剩余量 > 0 的批次；
// 分母为 0 时按约定返回 0，不视为错误。
func (s *LedgerService) WeightedAverageCost(ctx context.Context, materialID string) (float64, error) {
	batches, err := s.batchRepo.ListByMaterial(ctx, materialID)
	if err != nil {
		return 0, err
	}
	return weightedAverageCost(batches), nil
}

func weightedAverageCost(batches []entity.MaterialBatch) float64 {
	var totalQty, totalValue float64
	for _, b := range batches {
		if b.BatchNumber == "" || b.RemainingStock <= 0 {
			continue
		}
		totalQty += b.RemainingStock
		totalValue += b.RemainingStock * b.CostPerUnit
	}
	if totalQty == 0 {
		return 0
	}
	return totalValue / totalQty
}

// BatchDraft 待入账批次草稿
// 表单编辑中的临时批次以草稿形式传入，校验通过前不落库。
type BatchDraft struct {
	InitialStock  float64    `json:"initial_stock"`
	CostPerUnit   float64    `json:"cost_per_unit"`
	PurchaseDate  time.Time  `json:"purchase_date"`
	DeliveredDate *time.Time `json:"delivered_date"`
	Status        string     `json:"status"`
}

// validateBatchDraft 校验批次草稿，返回归一化后的批次状态
func validateBatchDraft(draft BatchDraft) (string, error) {
	if draft.PurchaseDate.IsZero() {
		return "", newValidationError("purchase_date", "采购日期不能为空")
	}
	if draft.InitialStock <= 0 {
		return "", newValidationError("initial_stock", "期初数量必须大于0")
	}
	if draft.CostPerUnit <= 0 {
		return "", newValidationError("cost_per_unit", "单价必须大于0")
	}

	status := draft.Status
	if status == "" {
		status = entity.BatchStatusReceived
	}
	switch status {
	case entity.BatchStatusRequested, entity.BatchStatusExpected, entity.BatchStatusDelayed, entity.BatchStatusReceived:
	default:
		return "", newValidationError("status", "未知批次状态: "+status)
	}
	return status, nil
}

// AddBatch 入账新批次
// 校验失败直接拒绝；成功时分配顺序批次号 B###（按现有有效批次数+1），
// 剩余量初始化为期初量。批次创建和派生缓存刷新在同一事务内完成。
func (s *LedgerService) AddBatch(ctx context.Context, materialID string, draft BatchDraft) (*entity.MaterialBatch, error) {
	var batch *entity.MaterialBatch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		batch, err = s.AddBatchTx(tx, materialID, draft)
		if err != nil {
			return err
		}
		return refreshDerived(tx, materialID)
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx, materialID)
	return batch, nil
}

// AddBatchTx 在事务内入账新批次，不触碰派生缓存，由调用方在同一事务
// 完成全部写操作后统一刷新。
func (s *LedgerService) AddBatchTx(tx *gorm.DB, materialID string, draft BatchDraft) (*entity.MaterialBatch, error) {
	status, err := validateBatchDraft(draft)
	if err != nil {
		return nil, err
	}

	var m entity.Material
	if err := tx.Where("id = ? AND deleted_at IS NULL", materialID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("物料 %s: %w", materialID, ErrNotFound)
		}
		return nil, err
	}

	var count int64
	if err := tx.Model(&entity.MaterialBatch{}).
		Where("material_id = ? AND batch_number <> ''", materialID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("统计批次失败: %w", err)
	}

	batch := &entity.MaterialBatch{
		ID:             uuid.New().String(),
		MaterialID:     materialID,
		BatchNumber:    fmt.Sprintf("B%03d", count+1),
		InitialStock:   draft.InitialStock,
		RemainingStock: draft.InitialStock,
		CostPerUnit:    draft.CostPerUnit,
		PurchaseDate:   draft.PurchaseDate,
		DeliveredDate:  draft.DeliveredDate,
		Status:         status,
	}
	if err := tx.Create(batch).Error; err != nil {
		return nil, fmt.Errorf("创建批次失败: %w", err)
	}
	return batch, nil
}

// UpdateBatchRequest 批次修正，指针字段为空表示不变
type UpdateBatchRequest struct {
	InitialStock  *float64   `json:"initial_stock"`
	CostPerUnit   *float64   `json:"cost_per_unit"`
	PurchaseDate  *time.Time `json:"purchase_date"`
	DeliveredDate *time.Time `json:"delivered_date"`
	Status        *string    `json:"status"`
}

// UpdateBatch 修正批次
// 修改期初量视为修正而非消耗：剩余量同步重置为新的期初量。
func (s *LedgerService) UpdateBatch(ctx context.Context, materialID, batchID string, req UpdateBatchRequest) (*entity.MaterialBatch, error) {
	batch, err := s.findBatch(ctx, materialID, batchID)
	if err != nil {
		return nil, err
	}

	if req.InitialStock != nil {
		if *req.InitialStock <= 0 {
			return nil, newValidationError("initial_stock", "期初数量必须大于0")
		}
		batch.InitialStock = *req.InitialStock
		batch.RemainingStock = *req.InitialStock
	}
	if req.CostPerUnit != nil {
		if *req.CostPerUnit <= 0 {
			return nil, newValidationError("cost_per_unit", "单价必须大于0")
		}
		batch.CostPerUnit = *req.CostPerUnit
	}
	if req.PurchaseDate != nil {
		if req.PurchaseDate.IsZero() {
			return nil, newValidationError("purchase_date", "采购日期不能为空")
		}
		batch.PurchaseDate = *req.PurchaseDate
	}
	if req.DeliveredDate != nil {
		batch.DeliveredDate = req.DeliveredDate
	}
	if req.Status != nil {
		switch *req.Status {
		case entity.BatchStatusRequested, entity.BatchStatusExpected, entity.BatchStatusDelayed, entity.BatchStatusReceived:
			batch.Status = *req.Status
		default:
			return nil, newValidationError("status", "未知批次状态: "+*req.Status)
		}
	}

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, fmt.Errorf("更新批次失败: %w", err)
	}
	if err := s.RefreshMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	return batch, nil
}

// DeleteBatch 删除批次
// 占用记录独立于批次，删除不级联。
func (s *LedgerService) DeleteBatch(ctx context.Context, materialID, batchID string) error {
	if _, err := s.findBatch(ctx, materialID, batchID); err != nil {
		return err
	}
	if err := s.batchRepo.Delete(ctx, batchID); err != nil {
		return fmt.Errorf("删除批次失败: %w", err)
	}
	return s.RefreshMaterial(ctx, materialID)
}

func (s *LedgerService) findBatch(ctx context.Context, materialID, batchID string) (*entity.MaterialBatch, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("批次 %s: %w", batchID, ErrNotFound)
		}
		return nil, err
	}
	if batch.MaterialID != materialID {
		return nil, fmt.Errorf("批次 %s 不属于物料 %s: %w", batchID, materialID, ErrNotFound)
	}
	return batch, nil
}

// RefreshMaterial 重算并写回物料的派生缓存，同时失效汇总缓存
func (s *LedgerService) RefreshMaterial(ctx context.Context, materialID string) error {
	if err := refreshDerived(s.db.WithContext(ctx), materialID); err != nil {
		return err
	}
	s.invalidateSummary(ctx, materialID)
	return nil
}

// refreshDerived 在给定db句柄（可在事务内）上重算物料派生字段并写回，
// 台账写路径和分配事务共用同一份口径。
func refreshDerived(db *gorm.DB, materialID string) error {
	var batches []entity.MaterialBatch
	if err := db.Where("material_id = ?", materialID).Find(&batches).Error; err != nil {
		return fmt.Errorf("读取批次失败: %w", err)
	}
	var stock float64
	for _, b := range batches {
		if b.OnHand() {
			stock += b.RemainingStock
		}
	}
	cost := weightedAverageCost(batches)
	if err := db.Model(&entity.Material{}).Where("id = ?", materialID).
		Updates(map[string]interface{}{"stock": stock, "cost_per_unit": cost}).Error; err != nil {
		return fmt.Errorf("写回派生字段失败: %w", err)
	}
	return nil
}

// MaterialSummary 物料库存汇总
type MaterialSummary struct {
	MaterialID   string  `json:"material_id"`
	Stock        float64 `json:"stock"`
	PendingStock float64 `json:"pending_stock"`
	CostPerUnit  float64 `json:"cost_per_unit"`
}

// Summary 库存汇总，redis 缓存 5 分钟，批次写操作后失效
func (s *LedgerService) Summary(ctx context.Context, materialID string) (*MaterialSummary, error) {
	cacheKey := "mrp:material:summary:" + materialID
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var summary MaterialSummary
			if json.Unmarshal([]byte(cached), &summary) == nil {
				return &summary, nil
			}
		}
	}

	if _, err := s.GetMaterial(ctx, materialID); err != nil {
		return nil, err
	}
	stock, err := s.batchRepo.OnHandStock(ctx, materialID)
	if err != nil {
		return nil, err
	}
	pending, err := s.batchRepo.PendingStock(ctx, materialID)
	if err != nil {
		return nil, err
	}
	batches, err := s.batchRepo.ListByMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}

	summary := &MaterialSummary{
		MaterialID:   materialID,
		Stock:        stock,
		PendingStock: pending,
		CostPerUnit:  weightedAverageCost(batches),
	}
	if s.rdb != nil {
		if data, err := json.Marshal(summary); err == nil {
			s.rdb.Set(ctx, cacheKey, data, summaryCacheTTL)
		}
	}
	return summary, nil
}

func (s *LedgerService) invalidateSummary(ctx context.Context, materialID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, "mrp:material:summary:"+materialID)
	}
}

var ledgerExportHeaders = []string{"物料编码", "物料名称", "分类", "单位", "供应商", "ABC", "在库数量", "加权平均单价"}

// ExportLedger 导出物料台账为 Excel
func (s *LedgerService) ExportLedger(ctx context.Context) (*excelize.File, error) {
	materials, err := s.materialRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取物料失败: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Ledger"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range ledgerExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, m := range materials {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), m.Code)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), m.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), m.Category)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), m.Unit)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), m.Vendor)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), m.ABCClass)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), m.Stock)
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), m.CostPerUnit)
	}

	return f, nil
}
