package models

import (
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
)

// Same-day duplicate cache. One JSON-array blob per agent, purged down to
// "today" on every write. This is the first, cheapest gate of the pipeline;
// any storage fault degrades to "no duplicate" and the remote checks take
// over, so no error ever escapes this file.

const localCacheKeyPrefix = "today_activations:"

// Blob retention is a safety net only; the timestamp filter is authoritative.
const localCacheRetention = 48 * time.Hour

type LocalCacheEntry struct {
	SerialNumber string `json:"serialNumber"`
	MarketArea   string `json:"marketArea"`
	AgentId      string `json:"agentId"`
	Timestamp    int64  `json:"timestamp"`
}

func localCacheKey(agentId string) string {
	return localCacheKeyPrefix + agentId
}

// IsDuplicateToday reports whether the agent already activated this serial
// today (local calendar day).
func IsDuplicateToday(serial string, agentId string) bool {
	entries, err := loadTodayEntries(agentId, time.Now())
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "localCache.go", "IsDuplicateToday", "loadTodayEntries", agentId, err)
		return false
	}
	for _, e := range entries {
		if e.SerialNumber == serial {
			return true
		}
	}
	return false
}

// RecordLocalActivation appends the serial to the agent's same-day blob and
// re-filters it down to today before saving, so the blob cannot grow without
// bound. A failed save is logged and skipped.
func RecordLocalActivation(serial string, marketArea string, agentId string) {
	now := time.Now()
	entries, err := loadTodayEntries(agentId, now)
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "localCache.go", "RecordLocalActivation", "loadTodayEntries", agentId, err)
		entries = nil
	}

	entries = append(entries, LocalCacheEntry{
		SerialNumber: serial,
		MarketArea:   marketArea,
		AgentId:      agentId,
		Timestamp:    now.UnixMilli(),
	})

	if err := blobStore.SetObject(localCacheKey(agentId), entries, localCacheRetention); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "localCache.go", "RecordLocalActivation", "SetObject", agentId, err)
	}
}

func loadTodayEntries(agentId string, now time.Time) ([]LocalCacheEntry, error) {
	var entries []LocalCacheEntry
	found, err := blobStore.GetObject(localCacheKey(agentId), &entries)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	startOfToday := utils.StartOfToday(now).UnixMilli()
	var today []LocalCacheEntry
	for _, e := range entries {
		if e.Timestamp >= startOfToday {
			today = append(today, e)
		}
	}
	return today, nil
}
