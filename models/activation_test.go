package models_test

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

func TestGetAgentActivationsDedupesAcrossFieldGenerations(t *testing.T) {
	ds, _ := installFakes(t)

	// One modern record carrying both id fields, one legacy-only record.
	ds.seed("scan_activations", map[string]any{
		"scanId":    "scan_modern",
		"simSerial": "11111111111111111111",
		"idNumber":  "A001",
		"userId":    "A001",
		"timestamp": int64(2000),
	})
	ds.seed("scan_activations", map[string]any{
		"scanId":       "scan_legacy",
		"serialNumber": "22222222222222222222",
		"userId":       "A001",
		"timestamp":    int64(1000),
	})
	ds.seed("scan_activations", map[string]any{
		"scanId":    "scan_other_agent",
		"simSerial": "33333333333333333333",
		"idNumber":  "A002",
		"timestamp": int64(3000),
	})

	records, err := models.GetAgentActivations(context.Background(), "A001")
	if err != nil {
		t.Fatalf("GetAgentActivations: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (modern counted once), got %d", len(records))
	}
	if records[0].ScanId != "scan_modern" || records[1].ScanId != "scan_legacy" {
		t.Fatalf("wrong order: %s, %s", records[0].ScanId, records[1].ScanId)
	}
	if records[1].SimSerial != "22222222222222222222" {
		t.Fatal("legacy serialNumber field must decode into SimSerial")
	}
	if records[1].ReviewStatus != models.ReviewStatusUnderReview {
		t.Fatalf("missing reviewStatus must default to Under Review, got %q", records[1].ReviewStatus)
	}
}

func TestListActivationsBetween(t *testing.T) {
	ds, _ := installFakes(t)
	for ts := int64(1000); ts <= 5000; ts += 1000 {
		ds.seed("scan_activations", map[string]any{
			"scanId":    "scan_at",
			"simSerial": testSerial,
			"idNumber":  "A001",
			"timestamp": ts,
		})
	}

	records, err := models.ListActivationsBetween(context.Background(), 2000, 4000)
	if err != nil {
		t.Fatalf("ListActivationsBetween: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records in range, got %d", len(records))
	}
	if records[0].Timestamp != 4000 || records[2].Timestamp != 2000 {
		t.Fatalf("range must be inclusive and newest first: %d..%d", records[0].Timestamp, records[2].Timestamp)
	}
}
