package models_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

func seedStockDoc(ds *fakeDocStore, serials ...string) {
	arr := make([]any, 0, len(serials))
	for _, s := range serials {
		arr = append(arr, s)
	}
	ds.seed("simStock", map[string]any{"serialNumbers": arr})
}

func seedNestedStockDoc(ds *fakeDocStore, serials ...string) {
	cards := make([]any, 0, len(serials))
	for _, s := range serials {
		cards = append(cards, map[string]any{"serialNumber": s})
	}
	ds.seed("simStock", map[string]any{
		"orders": []any{map[string]any{"simCards": cards}},
	})
}

func TestSerialInFlatStock(t *testing.T) {
	ds, _ := installFakes(t)
	seedStockDoc(ds, testSerial)

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("serial in flat serialNumbers array must validate")
	}
}

func TestSerialInNestedStock(t *testing.T) {
	ds, _ := installFakes(t)
	seedNestedStockDoc(ds, testSerial)

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("serial in nested orders/simCards must validate")
	}
}

func TestSerialNotInAnyStock(t *testing.T) {
	ds, _ := installFakes(t)
	seedStockDoc(ds, "11111111111111111111")
	seedNestedStockDoc(ds, "22222222222222222222")

	if models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("unregistered serial must not validate")
	}
}

func TestStockResultServedFromCacheWithinLifespan(t *testing.T) {
	ds, _ := installFakes(t)
	seedStockDoc(ds, testSerial)

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("first check must validate")
	}
	queries := ds.calls["QueryArrayContains"] + ds.calls["ScanAll"]

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("second check must validate")
	}
	if got := ds.calls["QueryArrayContains"] + ds.calls["ScanAll"]; got != queries {
		t.Fatalf("second check within cache lifespan must not touch the store: %d remote calls, want %d", got, queries)
	}
}

func TestStaleStockCacheEntryIsRevalidated(t *testing.T) {
	ds, bs := installFakes(t)
	seedStockDoc(ds, testSerial)

	stale, _ := json.Marshal(map[string]any{
		"result":   false,
		"cachedAt": time.Now().Add(-10 * time.Minute).UnixMilli(),
	})
	bs.data["stock_valid:"+testSerial] = stale

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("stale cached negative must be revalidated against the store")
	}
}

func TestFlatQueryFailureFallsThroughToScan(t *testing.T) {
	ds, _ := installFakes(t)
	ds.errQueryArrayContains = errStorage
	seedNestedStockDoc(ds, testSerial)

	if !models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("a failing flat query is inconclusive; the scan must still find the serial")
	}
}

func TestStockFailsClosedWhenScanFails(t *testing.T) {
	ds, bs := installFakes(t)
	ds.errQueryArrayContains = errStorage
	ds.errScanAll = errStorage

	if models.IsSerialInStock(context.Background(), testSerial) {
		t.Fatal("exhausted lookups must fail closed")
	}
	if _, ok := bs.data["stock_valid:"+testSerial]; ok {
		t.Fatal("an inconclusive failure must not be cached as a negative")
	}
}

func TestValidateSerialsInStockBatch(t *testing.T) {
	ds, _ := installFakes(t)
	seedStockDoc(ds, "11111111111111111111", "22222222222222222222")

	serials := []string{"11111111111111111111", "22222222222222222222", "33333333333333333333"}
	results := models.ValidateSerialsInStock(context.Background(), serials)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results["11111111111111111111"] || !results["22222222222222222222"] {
		t.Fatal("seeded serials must validate")
	}
	if results["33333333333333333333"] {
		t.Fatal("unseeded serial must not validate")
	}
}

func TestValidateSerialsPagesInclusionQueries(t *testing.T) {
	ds, _ := installFakes(t)

	var serials []string
	for i := 0; i < 25; i++ {
		serials = append(serials, fmt.Sprintf("%020d", i))
	}
	seedStockDoc(ds, serials...)

	results := models.ValidateSerialsInStock(context.Background(), serials)
	for _, s := range serials {
		if !results[s] {
			t.Fatalf("serial %s must validate", s)
		}
	}
	if got := ds.calls["QueryArrayContainsAny"]; got != 3 {
		t.Fatalf("25 serials must page into 3 inclusion queries, got %d", got)
	}
}

func TestBatchFallsBackToScanOnQueryFailure(t *testing.T) {
	ds, _ := installFakes(t)
	ds.errQueryArrayContainsAny = errStorage
	seedNestedStockDoc(ds, testSerial)

	results := models.ValidateSerialsInStock(context.Background(), []string{testSerial})
	if !results[testSerial] {
		t.Fatal("batch query failure must fall back to the full scan across both shapes")
	}
}

func TestDiagnoseStockShape(t *testing.T) {
	ds, _ := installFakes(t)
	seedStockDoc(ds, "11111111111111111111", "22222222222222222222")
	seedNestedStockDoc(ds, "33333333333333333333")
	ds.seed("simStock", map[string]any{"note": "migrated elsewhere"})

	report, err := models.DiagnoseStockShape(context.Background())
	if err != nil {
		t.Fatalf("DiagnoseStockShape: %v", err)
	}
	if report.TotalDocs != 3 {
		t.Fatalf("TotalDocs = %d, want 3", report.TotalDocs)
	}
	if !report.HasFlatField || report.FlatCount != 2 {
		t.Fatalf("flat shape: present=%v count=%d, want present with 2 serials", report.HasFlatField, report.FlatCount)
	}
	if !report.HasNestedField || report.NestedCount != 1 {
		t.Fatalf("nested shape: present=%v count=%d, want present with 1 serial", report.HasNestedField, report.NestedCount)
	}
	if report.UnknownDocs != 1 {
		t.Fatalf("UnknownDocs = %d, want 1", report.UnknownDocs)
	}
}
