package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
)

// StartKeyRequest is a customer-registration request submitted to a team
// leader after a SIM is activated. Denormalized like activation records:
// customer, team-leader and dealer display fields are captured at submission.
type StartKeyRequest struct {
	RequestId        string         `json:"requestId"`
	CustomerName     string         `json:"customerName"`
	CustomerId       string         `json:"customerId"`
	CustomerDob      string         `json:"customerDob"`
	PhoneNumber      string         `json:"phoneNumber"`
	PhotoUrl         string         `json:"photoUrl,omitempty"`
	TeamLeaderId     string         `json:"teamLeaderId"`
	TeamLeaderName   string         `json:"teamLeaderName"`
	SimSerial        string         `json:"simSerial,omitempty"`
	Status           StartKeyStatus `json:"status"`
	SubmittedAt      int64          `json:"submittedAt"`
	SubmittedBy      string         `json:"submittedBy"`
	SubmittedByPhone string         `json:"submittedByPhone"`
	DealerCode       string         `json:"dealerCode"`
	DealerName       string         `json:"dealerName"`
}

type NewStartKeyRequest struct {
	CustomerName   string `json:"customer_name" binding:"required"`
	CustomerId     string `json:"customer_id" binding:"required"`
	CustomerDob    string `json:"customer_dob" binding:"required"`
	PhoneNumber    string `json:"phone_number" binding:"required"`
	PhotoUrl       string `json:"photo_url"`
	TeamLeaderId   string `json:"team_leader_id" binding:"required"`
	TeamLeaderName string `json:"team_leader_name" binding:"required"`
	SimSerial      string `json:"sim_serial"`
}

func startKeyFromDoc(doc Document) StartKeyRequest {
	data := doc.Data
	return StartKeyRequest{
		RequestId:        docString(data, "requestId"),
		CustomerName:     docString(data, "customerName"),
		CustomerId:       docString(data, "customerId"),
		CustomerDob:      docString(data, "customerDob"),
		PhoneNumber:      docString(data, "phoneNumber"),
		PhotoUrl:         docString(data, "photoUrl"),
		TeamLeaderId:     docString(data, "teamLeaderId"),
		TeamLeaderName:   docString(data, "teamLeaderName"),
		SimSerial:        docString(data, "simSerial"),
		Status:           StartKeyStatus(docString(data, "status")),
		SubmittedAt:      docInt(data, "submittedAt"),
		SubmittedBy:      docString(data, "submittedBy"),
		SubmittedByPhone: docString(data, "submittedByPhone"),
		DealerCode:       docString(data, "dealerCode"),
		DealerName:       docString(data, "dealerName"),
	}
}

// CreateStartKeyRequest persists a new request with a generated id and
// pending status, and returns the request id.
func CreateStartKeyRequest(ctx context.Context, agent AgentIdentity, input *NewStartKeyRequest) (string, error) {
	store, err := getDocStore()
	if err != nil {
		return "", err
	}

	now := time.Now()
	req := StartKeyRequest{
		RequestId:        utils.GenerateStartKeyId(now),
		CustomerName:     input.CustomerName,
		CustomerId:       input.CustomerId,
		CustomerDob:      input.CustomerDob,
		PhoneNumber:      utils.NormalizePhoneNumber(input.PhoneNumber, utils.CountryCode),
		PhotoUrl:         input.PhotoUrl,
		TeamLeaderId:     input.TeamLeaderId,
		TeamLeaderName:   input.TeamLeaderName,
		SimSerial:        input.SimSerial,
		Status:           StartKeyStatusPending,
		SubmittedAt:      now.UnixMilli(),
		SubmittedBy:      agent.IdNumber,
		SubmittedByPhone: utils.NormalizePhoneNumber(agent.PhoneNumber, utils.CountryCode),
		DealerCode:       agent.DealerCode,
		DealerName:       agent.VanShop,
	}

	doc := map[string]any{
		"requestId":        req.RequestId,
		"customerName":     req.CustomerName,
		"customerId":       req.CustomerId,
		"customerDob":      req.CustomerDob,
		"phoneNumber":      req.PhoneNumber,
		"teamLeaderId":     req.TeamLeaderId,
		"teamLeaderName":   req.TeamLeaderName,
		"status":           string(req.Status),
		"submittedAt":      req.SubmittedAt,
		"submittedBy":      req.SubmittedBy,
		"submittedByPhone": req.SubmittedByPhone,
		"dealerCode":       req.DealerCode,
		"dealerName":       req.DealerName,
	}
	// The store rejects empty optional fields written as nil; omit them.
	if req.PhotoUrl != "" {
		doc["photoUrl"] = req.PhotoUrl
	}
	if req.SimSerial != "" {
		doc["simSerial"] = req.SimSerial
	}

	if _, err := store.Add(ctx, collectionStartKeys, doc); err != nil {
		return "", err
	}
	return req.RequestId, nil
}

// GetAgentStartKeyRequests lists the agent's submitted requests, newest first.
func GetAgentStartKeyRequests(ctx context.Context, agentId string) ([]StartKeyRequest, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	docs, err := store.QueryEqual(ctx, collectionStartKeys, "submittedBy", agentId, 0)
	if err != nil {
		return nil, err
	}

	requests := make([]StartKeyRequest, 0, len(docs))
	for _, doc := range docs {
		requests = append(requests, startKeyFromDoc(doc))
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].SubmittedAt > requests[j].SubmittedAt
	})
	return requests, nil
}

// CheckStartKeyDuplicate reports whether a start-key request already exists
// for the serial. Fail-open like the activation duplicate check: this is a
// courtesy gate, not the authority.
func CheckStartKeyDuplicate(ctx context.Context, simSerial string) bool {
	store, err := getDocStore()
	if err != nil {
		config.LogError(config.GetLogger(), "startKeyRequest.go", "CheckStartKeyDuplicate", "getDocStore", simSerial, err)
		return false
	}

	docs, err := store.QueryEqual(ctx, collectionStartKeys, "simSerial", simSerial, 1)
	if err != nil {
		config.LogError(config.GetLogger(), "startKeyRequest.go", "CheckStartKeyDuplicate", "QueryEqual", simSerial, err)
		return false
	}
	return len(docs) > 0
}
