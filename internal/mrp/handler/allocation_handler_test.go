package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/repository"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/service"
	"github.com/Emmanuelvdg/manu-flow-central-sub000/internal/mrp/testutil"
)

func setupAllocationHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil)
	h := NewAllocationHandler(services.Availability, services.Allocation)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/mrp")
	api.POST("/availability/check", h.Check)
	api.GET("/materials/:id/allocations", h.MaterialAllocations)
	api.POST("/orders/:orderId/reserve", h.Reserve)
	api.GET("/orders/:orderId/allocations", h.ListAllocations)
	api.DELETE("/orders/:orderId/allocations", h.Release)
	api.POST("/orders/:orderId/allocate", h.Allocate)
	api.GET("/orders/:orderId/draws", h.Draws)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

// TestCheckReserveAllocateFlow runs the full order material flow
func TestCheckReserveAllocateFlow(t *testing.T) {
	env := setupAllocationHandlerTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "订单料", "pcs")
	testutil.SeedBatch(t, env.DB, m.ID, "B001", 100, 2.5, time.Now())

	body := map[string]interface{}{
		"materials": []map[string]interface{}{
			{"material_id": m.ID, "quantity": 40},
		},
	}

	// Check: booked
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/availability/check", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"] != "booked" {
		t.Fatalf("expected status booked, got %v", data["status"])
	}

	// Reserve
	w2 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/orders/order-h1/reserve", body, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w2.Code, w2.Body.String())
	}

	w3 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/orders/order-h1/allocations", nil, token)
	items := testutil.ParseResponse(w3)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(items))
	}

	// The material-side view shows the booked reservation
	wv := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/materials/"+m.ID+"/allocations", nil, token)
	if wv.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", wv.Code, wv.Body.String())
	}
	view := testutil.ParseResponse(wv)["data"].(map[string]interface{})
	if view["booked"].(float64) != 40 {
		t.Errorf("expected booked 40, got %v", view["booked"])
	}

	// Allocate
	w4 := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/orders/order-h1/allocate", body, token)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w4.Code, w4.Body.String())
	}

	// Draws recorded, allocation rows gone
	w5 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/orders/order-h1/draws", nil, token)
	draws := testutil.ParseResponse(w5)["data"].(map[string]interface{})["items"].([]interface{})
	if len(draws) != 1 {
		t.Fatalf("expected 1 draw, got %d", len(draws))
	}
	draw := draws[0].(map[string]interface{})
	if draw["quantity"].(float64) != 40 {
		t.Errorf("expected draw quantity 40, got %v", draw["quantity"])
	}

	w6 := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/mrp/orders/order-h1/allocations", nil, token)
	items = testutil.ParseResponse(w6)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 0 {
		t.Errorf("expected reservation consumed, got %d rows", len(items))
	}
}

// TestAllocateInsufficientReturnsConflict verifies the 40900 envelope
func TestAllocateInsufficientReturnsConflict(t *testing.T) {
	env := setupAllocationHandlerTest(t)
	token := testutil.DefaultTestToken()

	m := testutil.SeedMaterial(t, env.DB, "稀缺料", "pcs")
	testutil.SeedBatch(t, env.DB, m.ID, "B001", 5, 1, time.Now())

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/orders/order-h2/allocate",
		map[string]interface{}{
			"materials": []map[string]interface{}{
				{"material_id": m.ID, "quantity": 10},
			},
		}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 40900 {
		t.Errorf("expected code 40900, got %v", resp["code"])
	}
}

// TestCheckRejectsEmptyMaterials verifies binding validation
func TestCheckRejectsEmptyMaterials(t *testing.T) {
	env := setupAllocationHandlerTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/mrp/availability/check",
		map[string]interface{}{"materials": []map[string]interface{}{}}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
