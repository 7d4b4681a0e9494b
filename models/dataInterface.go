package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Collection names. scan_activations and simStock carry historical schemas
// written by three generations of clients; all decoding goes through the
// adapters in activation.go and inventory.go.
const (
	collectionActivations = "scan_activations"
	collectionSimStock    = "simStock"
	collectionStartKeys   = "start_key_requests"
	collectionAgents      = "users"
)

// Document is one raw document from the remote store.
type Document struct {
	ID   string
	Data map[string]any
}

// DocStore is the narrow port this package needs from the remote document
// store: equality / contains queries, ordered+limited reads, add, full scan.
// Production always goes through the Firestore adapter below; tests substitute
// an in-memory implementation.
type DocStore interface {
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	QueryEqual(ctx context.Context, collection string, field string, value any, limit int) ([]Document, error)
	QueryArrayContains(ctx context.Context, collection string, field string, value any) ([]Document, error)
	QueryArrayContainsAny(ctx context.Context, collection string, field string, values []any) ([]Document, error)
	QueryOrderedDesc(ctx context.Context, collection string, orderField string, limit int) ([]Document, error)
	ScanAll(ctx context.Context, collection string) ([]Document, error)
}

// BlobStore is the string-keyed JSON blob store backing the client-state
// caches. The production implementation delegates to the nil-safe redis
// helpers in config, so a missing Redis degrades every cache to a miss.
type BlobStore interface {
	GetObject(key string, dest any) (bool, error)
	SetObject(key string, obj any, exp time.Duration) error
	Remove(keys ...string) error
}

var ErrorStoreUnavailable = errors.New("document store not connected")

var (
	docStoreOverride DocStore
	blobStore        BlobStore = redisBlobStore{}
)

// UseDocStore replaces the document store for tests.
func UseDocStore(s DocStore) {
	docStoreOverride = s
}

// UseBlobStore replaces the cache blob store for tests.
func UseBlobStore(s BlobStore) {
	blobStore = s
}

func getDocStore() (DocStore, error) {
	if docStoreOverride != nil {
		return docStoreOverride, nil
	}
	client := config.GetFirestore()
	if client == nil {
		return nil, ErrorStoreUnavailable
	}
	return firestoreStore{client: client}, nil
}

type redisBlobStore struct{}

func (redisBlobStore) GetObject(key string, dest any) (bool, error) {
	return config.GetRedisObject(key, dest)
}

func (redisBlobStore) SetObject(key string, obj any, exp time.Duration) error {
	return config.SetRedisObject(key, obj, exp)
}

func (redisBlobStore) Remove(keys ...string) error {
	return config.RemoveRedisKey(keys...)
}

type firestoreStore struct {
	client *firestore.Client
}

func (s firestoreStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s firestoreStore) QueryEqual(ctx context.Context, collection string, field string, value any, limit int) ([]Document, error) {
	q := s.client.Collection(collection).Where(field, "==", value)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return collectDocuments(ctx, q)
}

func (s firestoreStore) QueryArrayContains(ctx context.Context, collection string, field string, value any) ([]Document, error) {
	return collectDocuments(ctx, s.client.Collection(collection).Where(field, "array-contains", value))
}

func (s firestoreStore) QueryArrayContainsAny(ctx context.Context, collection string, field string, values []any) ([]Document, error) {
	return collectDocuments(ctx, s.client.Collection(collection).Where(field, "array-contains-any", values))
}

func (s firestoreStore) QueryOrderedDesc(ctx context.Context, collection string, orderField string, limit int) ([]Document, error) {
	q := s.client.Collection(collection).OrderBy(orderField, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return collectDocuments(ctx, q)
}

func (s firestoreStore) ScanAll(ctx context.Context, collection string) ([]Document, error) {
	return collectDocuments(ctx, s.client.Collection(collection).Query)
}

func collectDocuments(ctx context.Context, q firestore.Query) ([]Document, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}
