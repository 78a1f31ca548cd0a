package handler

import (
	"net/http"
	"testing"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/testutil"
)

func setupMaterialTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil)
	h := NewMaterialHandler(services.Ledger)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mrp")
	api.POST("/materials", h.Create)
	api.GET("/materials/:id", h.Get)
	api.GET("/materials/:id/summary", h.Summary)
	api.POST("/materials/:id/batches", h.AddBatch)
	api.PUT("/materials/:id/batches/:batchId", h.UpdateBatch)
	api.DELETE("/materials/:id/batches/:batchId", h.DeleteBatch)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestMaterialBatchLifecycle drives a material through batch add/edit/delete
func TestMaterialBatchLifecycle(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	// Create material
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/materials", map[string]interface{}{
		"code": "MAT-HANDLER-001",
		"name": "阳极氧化铝板",
		"unit": "张",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	materialID := resp["data"].(map[string]interface{})["id"].(string)

	// Add two batches
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/materials/"+materialID+"/batches",
		map[string]interface{}{
			"initial_stock": 10,
			"cost_per_unit": 2.0,
			"purchase_date": "2026-01-05T00:00:00Z",
		}, token)
	if w2.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w2.Code, w2.Body.String())
	}
	batch := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if batch["batch_number"] != "B001" {
		t.Fatalf("expected batch number B001, got %v", batch["batch_number"])
	}
	batchID := batch["id"].(string)

	w3 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/materials/"+materialID+"/batches",
		map[string]interface{}{
			"initial_stock": 5,
			"cost_per_unit": 5.0,
			"purchase_date": "2026-02-10T00:00:00Z",
		}, token)
	if w3.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w3.Code, w3.Body.String())
	}

	// Summary reflects derived totals: 15 in stock at weighted cost 3.0
	w4 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/materials/"+materialID+"/summary", nil, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w4.Code, w4.Body.String())
	}
	summary := testutil.ParseResponse(w4)["data"].(map[string]interface{})
	if summary["stock"].(float64) != 15 {
		t.Errorf("expected stock 15, got %v", summary["stock"])
	}
	if summary["cost_per_unit"].(float64) != 3.0 {
		t.Errorf("expected weighted cost 3.0, got %v", summary["cost_per_unit"])
	}

	// Edit initial stock resets remaining
	w5 := testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/mrp/materials/"+materialID+"/batches/"+batchID,
		map[string]interface{}{"initial_stock": 20}, token)
	if w5.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w5.Code, w5.Body.String())
	}
	edited := testutil.ParseResponse(w5)["data"].(map[string]interface{})
	if edited["remaining_stock"].(float64) != 20 {
		t.Errorf("expected remaining reset to 20, got %v", edited["remaining_stock"])
	}

	// Delete batch
	w6 := testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/mrp/materials/"+materialID+"/batches/"+batchID, nil, token)
	if w6.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w6.Code, w6.Body.String())
	}

	// Material detail now shows a single batch
	w7 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/materials/"+materialID, nil, token)
	detail := testutil.ParseResponse(w7)["data"].(map[string]interface{})
	batches := detail["batches"].([]interface{})
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch after delete, got %d", len(batches))
	}
}

// TestAddBatchRejectsInvalidDraft verifies the 40000 validation envelope
func TestAddBatchRejectsInvalidDraft(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "校验料", "pcs")

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/materials/"+m.ID+"/batches",
		map[string]interface{}{
			"initial_stock": -1,
			"cost_per_unit": 2.0,
			"purchase_date": "2026-01-05T00:00:00Z",
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40000 {
		t.Errorf("expected code 40000, got %v", resp["code"])
	}
}

// TestMaterialRequiresAuth verifies requests without a token are rejected
func TestMaterialRequiresAuth(t *testing.T) {
	env := setupMaterialTest(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/materials",
		map[string]interface{}{"name": "未授权料"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

// TestGetMaterialNotFound verifies the 40400 envelope
func TestGetMaterialNotFound(t *testing.T) {
	env := setupMaterialTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/mrp/materials/00000000-0000-0000-0000-000000000000", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40400 {
		t.Errorf("expected code 40400, got %v", resp["code"])
	}
}
