package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
)

const testSerial = "12345678901234567890"

func TestIsDuplicateTodayEmptyCache(t *testing.T) {
	installFakes(t)

	if models.IsDuplicateToday(testSerial, "A001") {
		t.Fatal("empty cache must not report a duplicate")
	}
}

func TestRecordThenDuplicateToday(t *testing.T) {
	installFakes(t)

	models.RecordLocalActivation(testSerial, "Nairobi CBD", "A001")

	if !models.IsDuplicateToday(testSerial, "A001") {
		t.Fatal("recorded serial must be a same-day duplicate for the same agent")
	}
	if models.IsDuplicateToday("98765432109876543210", "A001") {
		t.Fatal("different serial must not be a duplicate")
	}
	if models.IsDuplicateToday(testSerial, "A002") {
		t.Fatal("local cache is per-agent; another agent must not see the entry")
	}
}

func TestYesterdaysEntryIsNotDuplicate(t *testing.T) {
	_, bs := installFakes(t)

	yesterday := utils.StartOfToday(time.Now()).Add(-time.Hour)
	entries := []models.LocalCacheEntry{{
		SerialNumber: testSerial,
		MarketArea:   "Nairobi CBD",
		AgentId:      "A001",
		Timestamp:    yesterday.UnixMilli(),
	}}
	if err := bs.SetObject("today_activations:A001", entries, 48*time.Hour); err != nil {
		t.Fatalf("SetObject: %v", err)
	}

	if models.IsDuplicateToday(testSerial, "A001") {
		t.Fatal("entry before start of today must not count as a duplicate")
	}
}

func TestRecordPurgesStaleEntries(t *testing.T) {
	_, bs := installFakes(t)

	stale := utils.StartOfToday(time.Now()).Add(-2 * time.Hour)
	entries := []models.LocalCacheEntry{{
		SerialNumber: "98765432109876543210",
		MarketArea:   "Mombasa",
		AgentId:      "A001",
		Timestamp:    stale.UnixMilli(),
	}}
	if err := bs.SetObject("today_activations:A001", entries, 48*time.Hour); err != nil {
		t.Fatalf("SetObject: %v", err)
	}

	models.RecordLocalActivation(testSerial, "Nairobi CBD", "A001")

	var stored []models.LocalCacheEntry
	found, err := bs.GetObject("today_activations:A001", &stored)
	if err != nil || !found {
		t.Fatalf("GetObject: found=%v err=%v", found, err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected the stale entry purged on write, got %d entries", len(stored))
	}
	if stored[0].SerialNumber != testSerial {
		t.Fatalf("surviving entry = %q, want %q", stored[0].SerialNumber, testSerial)
	}
}

func TestDuplicateTodaySwallowsStorageErrors(t *testing.T) {
	_, bs := installFakes(t)
	bs.getErr = errStorage

	if models.IsDuplicateToday(testSerial, "A001") {
		t.Fatal("storage fault must degrade to no-duplicate, not block the pipeline")
	}
}
