package models_test

import (
	"context"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/simfield_backend/models"
)

func TestCreateStartKeyRequest(t *testing.T) {
	ds, _ := installFakes(t)

	requestId, err := models.CreateStartKeyRequest(context.Background(), testAgent, &models.NewStartKeyRequest{
		CustomerName:   "Amina Hassan",
		CustomerId:     "30112233",
		CustomerDob:    "1995-04-12",
		PhoneNumber:    "0712345678",
		TeamLeaderId:   "TL007",
		TeamLeaderName: "Peter Kamau",
		SimSerial:      testSerial,
	})
	if err != nil {
		t.Fatalf("CreateStartKeyRequest: %v", err)
	}
	if !strings.HasPrefix(requestId, "SK_") {
		t.Fatalf("request id = %q, want SK_ prefix", requestId)
	}

	docs := ds.collections["start_key_requests"]
	if len(docs) != 1 {
		t.Fatalf("expected 1 written request, got %d", len(docs))
	}
	data := docs[0].Data
	if data["status"] != "pending" {
		t.Fatalf("status = %v, want pending", data["status"])
	}
	if data["submittedBy"] != testAgent.IdNumber {
		t.Fatalf("submittedBy = %v, want %s", data["submittedBy"], testAgent.IdNumber)
	}
	if _, ok := data["photoUrl"]; ok {
		t.Fatal("empty photoUrl must be omitted from the document")
	}
	if phone, _ := data["phoneNumber"].(string); !strings.HasPrefix(phone, "+254") {
		t.Fatalf("phone number must be normalized to E.164, got %q", phone)
	}
}

func TestStartKeyDuplicateCheck(t *testing.T) {
	installFakes(t)

	if models.CheckStartKeyDuplicate(context.Background(), testSerial) {
		t.Fatal("no request exists yet")
	}

	_, err := models.CreateStartKeyRequest(context.Background(), testAgent, &models.NewStartKeyRequest{
		CustomerName:   "Amina Hassan",
		CustomerId:     "30112233",
		CustomerDob:    "1995-04-12",
		PhoneNumber:    "0712345678",
		TeamLeaderId:   "TL007",
		TeamLeaderName: "Peter Kamau",
		SimSerial:      testSerial,
	})
	if err != nil {
		t.Fatalf("CreateStartKeyRequest: %v", err)
	}

	if !models.CheckStartKeyDuplicate(context.Background(), testSerial) {
		t.Fatal("a submitted request must be found by serial")
	}
}

func TestStartKeyDuplicateCheckFailsOpen(t *testing.T) {
	ds, _ := installFakes(t)
	ds.errQueryEqual = errStorage

	if models.CheckStartKeyDuplicate(context.Background(), testSerial) {
		t.Fatal("query failure must fail open")
	}
}

func TestGetAgentStartKeyRequestsNewestFirst(t *testing.T) {
	ds, _ := installFakes(t)
	ds.seed("start_key_requests", map[string]any{
		"requestId":   "SK_1",
		"submittedBy": "A001",
		"submittedAt": int64(1000),
	})
	ds.seed("start_key_requests", map[string]any{
		"requestId":   "SK_2",
		"submittedBy": "A001",
		"submittedAt": int64(2000),
	})
	ds.seed("start_key_requests", map[string]any{
		"requestId":   "SK_other",
		"submittedBy": "A002",
		"submittedAt": int64(3000),
	})

	requests, err := models.GetAgentStartKeyRequests(context.Background(), "A001")
	if err != nil {
		t.Fatalf("GetAgentStartKeyRequests: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if requests[0].RequestId != "SK_2" || requests[1].RequestId != "SK_1" {
		t.Fatalf("wrong order: %s, %s", requests[0].RequestId, requests[1].RequestId)
	}
}
