package models_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

var errStorage = errors.New("storage unavailable")

// In-memory stand-ins for the Firestore and Redis ports. Installed per test
// via installFakes; do not use t.Parallel with these.

type fakeDocStore struct {
	collections map[string][]models.Document
	nextID      int
	calls       map[string]int

	// per-method error injection
	errAdd                   error
	errQueryEqual            error
	errQueryArrayContains    error
	errQueryArrayContainsAny error
	errQueryOrderedDesc      error
	errScanAll               error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		collections: make(map[string][]models.Document),
		calls:       make(map[string]int),
	}
}

func (f *fakeDocStore) seed(collection string, data map[string]any) string {
	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.collections[collection] = append(f.collections[collection], models.Document{ID: id, Data: data})
	return id
}

func (f *fakeDocStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	f.calls["Add"]++
	if f.errAdd != nil {
		return "", f.errAdd
	}
	return f.seed(collection, data), nil
}

func (f *fakeDocStore) QueryEqual(ctx context.Context, collection string, field string, value any, limit int) ([]models.Document, error) {
	f.calls["QueryEqual"]++
	if f.errQueryEqual != nil {
		return nil, f.errQueryEqual
	}
	var out []models.Document
	for _, doc := range f.collections[collection] {
		if doc.Data[field] == value {
			out = append(out, doc)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDocStore) QueryArrayContains(ctx context.Context, collection string, field string, value any) ([]models.Document, error) {
	f.calls["QueryArrayContains"]++
	if f.errQueryArrayContains != nil {
		return nil, f.errQueryArrayContains
	}
	var out []models.Document
	for _, doc := range f.collections[collection] {
		if arrayHas(doc.Data[field], value) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *fakeDocStore) QueryArrayContainsAny(ctx context.Context, collection string, field string, values []any) ([]models.Document, error) {
	f.calls["QueryArrayContainsAny"]++
	if f.errQueryArrayContainsAny != nil {
		return nil, f.errQueryArrayContainsAny
	}
	var out []models.Document
	for _, doc := range f.collections[collection] {
		for _, v := range values {
			if arrayHas(doc.Data[field], v) {
				out = append(out, doc)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeDocStore) QueryOrderedDesc(ctx context.Context, collection string, orderField string, limit int) ([]models.Document, error) {
	f.calls["QueryOrderedDesc"]++
	if f.errQueryOrderedDesc != nil {
		return nil, f.errQueryOrderedDesc
	}
	docs := append([]models.Document(nil), f.collections[collection]...)
	sort.SliceStable(docs, func(i, j int) bool {
		return numeric(docs[i].Data[orderField]) > numeric(docs[j].Data[orderField])
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (f *fakeDocStore) ScanAll(ctx context.Context, collection string) ([]models.Document, error) {
	f.calls["ScanAll"]++
	if f.errScanAll != nil {
		return nil, f.errScanAll
	}
	return append([]models.Document(nil), f.collections[collection]...), nil
}

func arrayHas(raw any, value any) bool {
	arr, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, v := range arr {
		if v == value {
			return true
		}
	}
	return false
}

func numeric(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

type fakeBlobStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{data: make(map[string][]byte)}
}

func (f *fakeBlobStore) GetObject(key string, dest any) (bool, error) {
	if f.getErr != nil {
		return false, f.getErr
	}
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeBlobStore) SetObject(key string, obj any, exp time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeBlobStore) Remove(keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func installFakes(t *testing.T) (*fakeDocStore, *fakeBlobStore) {
	t.Helper()
	ds := newFakeDocStore()
	bs := newFakeBlobStore()
	models.UseDocStore(ds)
	models.UseBlobStore(bs)
	t.Cleanup(func() {
		models.UseDocStore(nil)
		models.UseBlobStore(newFakeBlobStore())
	})
	return ds, bs
}
