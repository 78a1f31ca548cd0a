package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/entity"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/testutil"
	"gorm.io/gorm"
)

func setupLedgerTest(t *testing.T) (*gorm.DB, *LedgerService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewLedgerService(repos.Material, repos.Batch, db, nil)
	return db, svc
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestAddBatchAssignsSequentialNumbers verifies batch numbers B001, B002, ...
func TestAddBatchAssignsSequentialNumbers(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "铝型材6063", "kg")

	b1, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 100,
		CostPerUnit:  12.5,
		PurchaseDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	if b1.BatchNumber != "B001" {
		t.Errorf("expected batch number B001, got %s", b1.BatchNumber)
	}
	if b1.RemainingStock != b1.InitialStock {
		t.Errorf("expected remaining == initial, got %v vs %v", b1.RemainingStock, b1.InitialStock)
	}
	if b1.Status != entity.BatchStatusReceived {
		t.Errorf("expected default status received, got %s", b1.Status)
	}

	b2, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 50,
		CostPerUnit:  13.0,
		PurchaseDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	if b2.BatchNumber != "B002" {
		t.Errorf("expected batch number B002, got %s", b2.BatchNumber)
	}
}

// TestAddBatchValidation verifies rejection of invalid drafts
func TestAddBatchValidation(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "螺丝M3", "pcs")

	cases := []struct {
		name  string
		draft BatchDraft
	}{
		{"missing purchase date", BatchDraft{InitialStock: 10, CostPerUnit: 1}},
		{"zero initial stock", BatchDraft{InitialStock: 0, CostPerUnit: 1, PurchaseDate: time.Now()}},
		{"negative initial stock", BatchDraft{InitialStock: -5, CostPerUnit: 1, PurchaseDate: time.Now()}},
		{"zero cost", BatchDraft{InitialStock: 10, CostPerUnit: 0, PurchaseDate: time.Now()}},
		{"unknown status", BatchDraft{InitialStock: 10, CostPerUnit: 1, PurchaseDate: time.Now(), Status: "floating"}},
	}
	for _, tc := range cases {
		if _, err := svc.AddBatch(ctx, m.ID, tc.draft); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		} else if !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}

	// 没留下任何批次
	var count int64
	if err := db.Model(&entity.MaterialBatch{}).Where("material_id = ?", m.ID).Count(&count).Error; err != nil {
		t.Fatalf("count batches failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 batches after rejected drafts, got %d", count)
	}
}

// TestWeightedAverageCost verifies the stock-weighted cost formula
func TestWeightedAverageCost(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "PC板材", "张")

	// 10 @ 2.00 + 5 @ 5.00 => (20+25)/15 = 3.00
	if _, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 10, CostPerUnit: 2.0, PurchaseDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	if _, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 5, CostPerUnit: 5.0, PurchaseDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}

	cost, err := svc.WeightedAverageCost(ctx, m.ID)
	if err != nil {
		t.Fatalf("WeightedAverageCost failed: %v", err)
	}
	if !almostEqual(cost, 3.0) {
		t.Errorf("expected weighted cost 3.0, got %v", cost)
	}

	stock, err := svc.TotalStock(ctx, m.ID)
	if err != nil {
		t.Fatalf("TotalStock failed: %v", err)
	}
	if !almostEqual(stock, 15) {
		t.Errorf("expected total stock 15, got %v", stock)
	}

	// 派生字段已写回物料行
	got, err := svc.GetMaterial(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMaterial failed: %v", err)
	}
	if !almostEqual(got.Stock, 15) || !almostEqual(got.CostPerUnit, 3.0) {
		t.Errorf("expected derived stock=15 cost=3.0, got stock=%v cost=%v", got.Stock, got.CostPerUnit)
	}
}

// TestWeightedAverageCostEmpty verifies 0 on zero denominator
func TestWeightedAverageCostEmpty(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "空料", "pcs")

	cost, err := svc.WeightedAverageCost(ctx, m.ID)
	if err != nil {
		t.Fatalf("WeightedAverageCost failed: %v", err)
	}
	if cost != 0 {
		t.Errorf("expected 0 for material with no batches, got %v", cost)
	}

	// 批次号为空的批次不计入
	if got := weightedAverageCost([]entity.MaterialBatch{
		{BatchNumber: "", RemainingStock: 10, CostPerUnit: 99},
		{BatchNumber: "B001", RemainingStock: 0, CostPerUnit: 50},
	}); got != 0 {
		t.Errorf("expected 0 when no batch qualifies, got %v", got)
	}
}

// TestUpdateBatchResetsRemaining verifies editing initial stock resets remaining
func TestUpdateBatchResetsRemaining(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "胶水401", "瓶")
	b, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 20, CostPerUnit: 8, PurchaseDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}

	// 模拟部分消耗
	b.RemainingStock = 6
	if err := db.Save(b).Error; err != nil {
		t.Fatalf("failed to set remaining: %v", err)
	}

	newInitial := 30.0
	updated, err := svc.UpdateBatch(ctx, m.ID, b.ID, UpdateBatchRequest{InitialStock: &newInitial})
	if err != nil {
		t.Fatalf("UpdateBatch failed: %v", err)
	}
	if updated.InitialStock != 30 || updated.RemainingStock != 30 {
		t.Errorf("expected initial=remaining=30 after edit, got initial=%v remaining=%v",
			updated.InitialStock, updated.RemainingStock)
	}
}

// TestUpdateBatchOwnership verifies cross-material batch access is rejected
func TestUpdateBatchOwnership(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m1 := testutil.SeedMaterial(t, db, "物料甲", "pcs")
	m2 := testutil.SeedMaterial(t, db, "物料乙", "pcs")
	b := testutil.SeedBatch(t, db, m1.ID, "B001", 10, 1, time.Now())

	cost := 2.0
	if _, err := svc.UpdateBatch(ctx, m2.ID, b.ID, UpdateBatchRequest{CostPerUnit: &cost}); err == nil {
		t.Fatal("expected not-found error for foreign batch, got nil")
	}
}

// TestDeleteBatchRefreshesDerived verifies derived fields after deletion
func TestDeleteBatchRefreshesDerived(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "包装箱", "个")
	b1, _ := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 10, CostPerUnit: 2, PurchaseDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if _, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 5, CostPerUnit: 5, PurchaseDate: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}

	if err := svc.DeleteBatch(ctx, m.ID, b1.ID); err != nil {
		t.Fatalf("DeleteBatch failed: %v", err)
	}

	got, err := svc.GetMaterial(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMaterial failed: %v", err)
	}
	if !almostEqual(got.Stock, 5) || !almostEqual(got.CostPerUnit, 5) {
		t.Errorf("expected derived stock=5 cost=5 after delete, got stock=%v cost=%v", got.Stock, got.CostPerUnit)
	}
}

// TestSummaryExcludesPendingFromStock verifies the on-hand vs pending split
func TestSummaryExcludesPendingFromStock(t *testing.T) {
	db, svc := setupLedgerTest(t)
	ctx := context.Background()

	m := testutil.SeedMaterial(t, db, "硅胶套", "pcs")
	if _, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 40, CostPerUnit: 3, PurchaseDate: time.Now(),
	}); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}
	if _, err := svc.AddBatch(ctx, m.ID, BatchDraft{
		InitialStock: 60, CostPerUnit: 3, PurchaseDate: time.Now(), Status: entity.BatchStatusExpected,
	}); err != nil {
		t.Fatalf("AddBatch failed: %v", err)
	}

	summary, err := svc.Summary(ctx, m.ID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !almostEqual(summary.Stock, 40) {
		t.Errorf("expected on-hand stock 40, got %v", summary.Stock)
	}
	if !almostEqual(summary.PendingStock, 60) {
		t.Errorf("expected pending stock 60, got %v", summary.PendingStock)
	}
}

// TestCreateMaterialDefaults verifies unit and ABC class defaults
func TestCreateMaterialDefaults(t *testing.T) {
	_, svc := setupLedgerTest(t)
	ctx := context.Background()

	m, err := svc.CreateMaterial(ctx, CreateMaterialRequest{Name: "不锈钢板"})
	if err != nil {
		t.Fatalf("CreateMaterial failed: %v", err)
	}
	if m.Unit != "pcs" {
		t.Errorf("expected default unit pcs, got %s", m.Unit)
	}
	if m.ABCClass != entity.ABCClassC {
		t.Errorf("expected default ABC class C, got %s", m.ABCClass)
	}

	if _, err := svc.CreateMaterial(ctx, CreateMaterialRequest{Name: "坏料", ABCClass: "D"}); err == nil {
		t.Error("expected validation error for ABC class D, got nil")
	}
}
