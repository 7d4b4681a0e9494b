package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

// Snapshot of the most recent activations across ALL agents. The uniqueness
// invariant is system-wide, so a per-agent cache could never answer the
// cross-agent duplicate question; the snapshot mirrors the global domain even
// though each agent's view is local. It is purely a latency optimization: a
// miss here means "cache miss", never "no duplicate" — the remote check in
// activation.go stays the authority on every write path.

const (
	globalCacheKey      = "global_activations"
	globalCacheLimit    = 5000
	globalCacheLifespan = 15 * time.Minute

	globalCacheRefreshLockKey = "lock:global_activations_refresh"
)

type globalCacheSnapshot struct {
	Records   []ActivationRecord `json:"records"`
	ExpiresAt int64              `json:"expires_at"`
}

func (s *globalCacheSnapshot) live(now time.Time) bool {
	return s.ExpiresAt > now.UnixMilli()
}

// RefreshGlobalCache replaces the snapshot with the most recent activations
// (newest first) and resets its expiry. agentId is logged for diagnostics
// only; the fetch scope is always global. Refreshes are single-flighted with
// a best-effort redis lock, and proceed without it when it cannot be obtained.
func RefreshGlobalCache(ctx context.Context, agentId string) error {
	logger := config.GetLogger()

	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, globalCacheRefreshLockKey, 30*time.Second, nil)
		if err != nil {
			if err != redislock.ErrNotObtained {
				logger.WithFields(logrus.Fields{
					"module":   "globalCache.go",
					"agent_id": agentId,
				}).Warn("error obtaining refresh lock; proceeding without it: " + err.Error())
			}
			lock = nil
		}
	}
	defer func() {
		if lock != nil {
			if releaseErr := lock.Release(ctx); releaseErr != nil {
				logger.WithFields(logrus.Fields{
					"module":   "globalCache.go",
					"agent_id": agentId,
				}).Warn("failed to release refresh lock: " + releaseErr.Error())
			}
		}
	}()

	store, err := getDocStore()
	if err != nil {
		return err
	}

	docs, err := store.QueryOrderedDesc(ctx, collectionActivations, "timestamp", globalCacheLimit)
	if err != nil {
		return err
	}

	records := make([]ActivationRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, activationFromDoc(doc))
	}

	snapshot := globalCacheSnapshot{
		Records:   records,
		ExpiresAt: time.Now().Add(globalCacheLifespan).UnixMilli(),
	}
	if err := blobStore.SetObject(globalCacheKey, snapshot, globalCacheLifespan); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"module":   "globalCache.go",
		"agent_id": agentId,
		"records":  len(records),
	}).Info("global activation cache refreshed")
	return nil
}

// IsDuplicateCached reports whether a live snapshot contains the serial. An
// expired snapshot is treated as empty and proactively cleared, forcing the
// caller onto the remote authority.
func IsDuplicateCached(serial string) bool {
	var snapshot globalCacheSnapshot
	found, err := blobStore.GetObject(globalCacheKey, &snapshot)
	if err != nil {
		config.LogError(config.GetLogger(), "globalCache.go", "IsDuplicateCached", "GetObject", serial, err)
		return false
	}
	if !found {
		return false
	}
	if !snapshot.live(time.Now()) {
		if err := blobStore.Remove(globalCacheKey); err != nil {
			config.LogError(config.GetLogger(), "globalCache.go", "IsDuplicateCached", "Remove expired", serial, err)
		}
		return false
	}

	for _, rec := range snapshot.Records {
		if rec.SimSerial == serial {
			return true
		}
	}
	return false
}

// appendToGlobalCache pushes a just-written record into the snapshot so a
// duplicate of it is caught before the next refresh cycle. Creates a fresh
// snapshot when none is live. Failures are logged and swallowed: the record
// is already durably written.
func appendToGlobalCache(rec ActivationRecord) {
	logger := config.GetLogger()

	var snapshot globalCacheSnapshot
	found, err := blobStore.GetObject(globalCacheKey, &snapshot)
	if err != nil {
		config.LogError(logger, "globalCache.go", "appendToGlobalCache", "GetObject", rec.ScanId, err)
		found = false
	}

	now := time.Now()
	if !found || !snapshot.live(now) {
		snapshot = globalCacheSnapshot{
			ExpiresAt: now.Add(globalCacheLifespan).UnixMilli(),
		}
	}

	snapshot.Records = append([]ActivationRecord{rec}, snapshot.Records...)
	if len(snapshot.Records) > globalCacheLimit {
		snapshot.Records = snapshot.Records[:globalCacheLimit]
	}

	ttl := time.Until(time.UnixMilli(snapshot.ExpiresAt))
	if ttl <= 0 {
		return
	}
	if err := blobStore.SetObject(globalCacheKey, snapshot, ttl); err != nil {
		config.LogError(logger, "globalCache.go", "appendToGlobalCache", "SetObject", rec.ScanId, err)
	}
}
