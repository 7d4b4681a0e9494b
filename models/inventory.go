package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
)

// Stock validation against the simStock collection. The collection holds two
// incompatible document shapes, depending on which import batch wrote them:
//
//   flat:   { "serialNumbers": ["...", ...] }
//   nested: { "orders": [ { "simCards": [ { "serialNumber": "..." }, ... ] }, ... ] }
//
// Both must be supported indefinitely; a single-shape validator silently and
// permanently rejects valid stock. Resolution order per serial: result cache,
// flat array-contains query, full-scan over nested structures. A failing flat
// query is inconclusive (the field may simply not exist), not a negative.
// After both shapes are exhausted, errors fail closed: a false rejection can
// be retried by a human, an unauthorized activation cannot be taken back.

const (
	stockCacheKeyPrefix = "stock_valid:"
	stockCacheLifespan  = 5 * time.Minute

	// Remote inclusion queries are capped at 10 values per page.
	stockBatchQueryLimit = 10
)

type stockValidationEntry struct {
	Result   bool  `json:"result"`
	CachedAt int64 `json:"cachedAt"`
}

func stockCacheKey(serial string) string {
	return stockCacheKeyPrefix + serial
}

type stockShape int

const (
	stockShapeUnknown stockShape = iota
	stockShapeFlat
	stockShapeNested
)

func classifyStockDoc(data map[string]any) stockShape {
	if _, ok := data["serialNumbers"].([]any); ok {
		return stockShapeFlat
	}
	if _, ok := data["orders"].([]any); ok {
		return stockShapeNested
	}
	return stockShapeUnknown
}

func flatSerials(data map[string]any) []string {
	raw, _ := data["serialNumbers"].([]any)
	serials := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			serials = append(serials, s)
		}
	}
	return serials
}

func nestedSerials(data map[string]any) []string {
	orders, _ := data["orders"].([]any)
	var serials []string
	for _, o := range orders {
		order, ok := o.(map[string]any)
		if !ok {
			continue
		}
		simCards, _ := order["simCards"].([]any)
		for _, c := range simCards {
			card, ok := c.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := card["serialNumber"].(string); ok {
				serials = append(serials, s)
			}
		}
	}
	return serials
}

// stockDocContains checks both shapes unconditionally: a document carrying
// both fields counts whichever side holds the serial.
func stockDocContains(data map[string]any, serial string) bool {
	for _, s := range flatSerials(data) {
		if s == serial {
			return true
		}
	}
	for _, s := range nestedSerials(data) {
		if s == serial {
			return true
		}
	}
	return false
}

func cachedStockResult(serial string, now time.Time) (bool, bool) {
	var entry stockValidationEntry
	found, err := blobStore.GetObject(stockCacheKey(serial), &entry)
	if err != nil || !found {
		return false, false
	}
	if now.UnixMilli()-entry.CachedAt >= stockCacheLifespan.Milliseconds() {
		return false, false
	}
	return entry.Result, true
}

func cacheStockResult(serial string, result bool, now time.Time) {
	entry := stockValidationEntry{Result: result, CachedAt: now.UnixMilli()}
	if err := blobStore.SetObject(stockCacheKey(serial), entry, stockCacheLifespan); err != nil {
		config.LogError(config.GetLogger(), "inventory.go", "cacheStockResult", "SetObject", serial, err)
	}
}

// IsSerialInStock reports whether the serial is authorized dealer stock.
func IsSerialInStock(ctx context.Context, serial string) bool {
	logger := config.GetLogger()
	now := time.Now()

	if result, ok := cachedStockResult(serial, now); ok {
		return result
	}

	store, err := getDocStore()
	if err != nil {
		config.LogError(logger, "inventory.go", "IsSerialInStock", "getDocStore", serial, err)
		return false
	}

	// Flat shape first: cheap indexed query.
	docs, err := store.QueryArrayContains(ctx, collectionSimStock, "serialNumbers", serial)
	if err != nil {
		// Inconclusive, not negative: fall through to the scan.
		config.LogError(logger, "inventory.go", "IsSerialInStock", "QueryArrayContains", serial, err)
	} else if len(docs) > 0 {
		cacheStockResult(serial, true, now)
		return true
	}

	all, err := store.ScanAll(ctx, collectionSimStock)
	if err != nil {
		config.LogError(logger, "inventory.go", "IsSerialInStock", "ScanAll", serial, err)
		return false
	}

	result := false
	for _, doc := range all {
		if stockDocContains(doc.Data, serial) {
			result = true
			break
		}
	}

	cacheStockResult(serial, result, now)
	return result
}

// ValidateSerialsInStock is the batch variant: cached results are served
// first, the remainder is resolved with paged inclusion queries against the
// flat shape, and anything still undetermined after a query failure goes
// through the full nested scan. Same correctness contract as the single-serial
// path, amortized cost.
func ValidateSerialsInStock(ctx context.Context, serials []string) map[string]bool {
	logger := config.GetLogger()
	now := time.Now()
	results := make(map[string]bool, len(serials))
	if len(serials) == 0 {
		return results
	}

	var uncached []string
	for _, serial := range serials {
		if result, ok := cachedStockResult(serial, now); ok {
			results[serial] = result
		} else {
			uncached = append(uncached, serial)
		}
	}
	if len(uncached) == 0 {
		return results
	}

	store, err := getDocStore()
	if err != nil {
		config.LogError(logger, "inventory.go", "ValidateSerialsInStock", "getDocStore", len(uncached), err)
		for _, serial := range uncached {
			results[serial] = false
		}
		return results
	}

	found := make(map[string]bool)
	queryFailed := false
	for start := 0; start < len(uncached); start += stockBatchQueryLimit {
		end := min(start+stockBatchQueryLimit, len(uncached))
		page := make([]any, 0, end-start)
		for _, serial := range uncached[start:end] {
			page = append(page, serial)
		}

		docs, err := store.QueryArrayContainsAny(ctx, collectionSimStock, "serialNumbers", page)
		if err != nil {
			config.LogError(logger, "inventory.go", "ValidateSerialsInStock", "QueryArrayContainsAny", page, err)
			queryFailed = true
			break
		}
		for _, doc := range docs {
			for _, s := range flatSerials(doc.Data) {
				found[s] = true
			}
		}
	}

	if queryFailed {
		all, err := store.ScanAll(ctx, collectionSimStock)
		if err != nil {
			config.LogError(logger, "inventory.go", "ValidateSerialsInStock", "ScanAll", len(uncached), err)
			for _, serial := range uncached {
				if _, ok := results[serial]; !ok {
					results[serial] = false
				}
			}
			return results
		}
		lookup := make(map[string]bool)
		for _, serial := range uncached {
			lookup[serial] = true
		}
		for _, doc := range all {
			for _, s := range flatSerials(doc.Data) {
				if lookup[s] {
					found[s] = true
				}
			}
			for _, s := range nestedSerials(doc.Data) {
				if lookup[s] {
					found[s] = true
				}
			}
		}
	}

	for _, serial := range uncached {
		result := found[serial]
		results[serial] = result
		cacheStockResult(serial, result, now)
	}
	return results
}

// StockShapeReport is an operator-facing introspection of the simStock
// collection, useful while import batches are migrating between shapes.
type StockShapeReport struct {
	TotalDocs      int  `json:"total_docs"`
	HasFlatField   bool `json:"has_flat_field"`
	HasNestedField bool `json:"has_nested_field"`
	FlatCount      int  `json:"flat_count"`
	NestedCount    int  `json:"nested_count"`
	UnknownDocs    int  `json:"unknown_docs"`
}

// DiagnoseStockShape walks the whole inventory collection and counts serials
// per shape. Documents matching neither shape are reported, not silently
// skipped.
func DiagnoseStockShape(ctx context.Context) (*StockShapeReport, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	docs, err := store.ScanAll(ctx, collectionSimStock)
	if err != nil {
		return nil, err
	}

	report := StockShapeReport{TotalDocs: len(docs)}
	for _, doc := range docs {
		switch classifyStockDoc(doc.Data) {
		case stockShapeFlat:
			report.HasFlatField = true
			report.FlatCount += len(flatSerials(doc.Data))
		case stockShapeNested:
			report.HasNestedField = true
			report.NestedCount += len(nestedSerials(doc.Data))
		default:
			report.UnknownDocs++
		}
	}
	return &report, nil
}
