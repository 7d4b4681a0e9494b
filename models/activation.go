package models

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
)

// ActivationRecord is the canonical shape of one completed SIM activation.
// At most one record may exist per serial system-wide; the whole pipeline in
// pipeline.go exists to enforce that without a server-side constraint.
// Records are append-only: this service never mutates or deletes them (the
// review process changes ReviewStatus out of band).
type ActivationRecord struct {
	ScanId         string       `json:"scanId"`
	SimSerial      string       `json:"simSerial"`
	AgentId        string       `json:"idNumber"`
	AgentName      string       `json:"baName"`
	AgentEmail     string       `json:"userEmail"`
	PhoneNumber    string       `json:"phoneNumber"`
	DealerCode     string       `json:"dealerCode"`
	DealerName     string       `json:"dealerName"`
	VanShop        string       `json:"vanShop"`
	MarketArea     string       `json:"location"`
	ActivationDate string       `json:"activationDate"`
	ReviewStatus   ReviewStatus `json:"reviewStatus"`
	ScanType       ScanType     `json:"scanType"`
	Latitude       float64      `json:"latitude"`
	Longitude      float64      `json:"longitude"`
	Timestamp      int64        `json:"timestamp"`
	CreatedAt      int64        `json:"createdAt"`
}

// NewActivation is the submission input. Serial is raw scanner/keyboard text;
// the pipeline canonicalizes it.
type NewActivation struct {
	Serial     string   `json:"serial" binding:"required"`
	MarketArea string   `json:"market_area" binding:"required"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// AgentIdentity carries the authenticated agent's denormalized display fields.
// They are captured into each record at submission time so historical records
// keep their display data even if the profile later changes.
type AgentIdentity struct {
	IdNumber    string
	FullName    string
	Email       string
	PhoneNumber string
	DealerCode  string
	VanShop     string
}

// DuplicateInfo describes the conflicting record on a duplicate hit, so an
// operator sees who activated the serial, where, and when instead of a bare
// boolean.
type DuplicateInfo struct {
	AgentName  string `json:"agent_name"`
	DealerName string `json:"dealer_name"`
	MarketArea string `json:"market_area"`
	Timestamp  int64  `json:"timestamp"`
}

type DuplicateCheck struct {
	IsDuplicate bool           `json:"is_duplicate"`
	Info        *DuplicateInfo `json:"info,omitempty"`
}

// The activation collection holds three generations of client schemas
// (serialNumber vs simSerial, userId vs idNumber, ...). All reads resolve
// legacy names here, once, at the decode boundary; nothing else in the
// codebase may carry fallback chains.
func activationFromDoc(doc Document) ActivationRecord {
	data := doc.Data
	rec := ActivationRecord{
		ScanId:         docString(data, "scanId"),
		SimSerial:      docString(data, "simSerial", "serialNumber"),
		AgentId:        docString(data, "idNumber", "userId"),
		AgentName:      docString(data, "baName", "userName"),
		AgentEmail:     docString(data, "userEmail"),
		PhoneNumber:    docString(data, "phoneNumber"),
		DealerCode:     docString(data, "dealerCode"),
		DealerName:     docString(data, "dealerName", "vanShop"),
		VanShop:        docString(data, "vanShop"),
		MarketArea:     docString(data, "location", "marketArea"),
		ActivationDate: docString(data, "activationDate"),
		ReviewStatus:   ReviewStatus(docString(data, "reviewStatus")),
		ScanType:       ScanType(docString(data, "scanType")),
		Latitude:       docFloat(data, "latitude"),
		Longitude:      docFloat(data, "longitude"),
		Timestamp:      docInt(data, "timestamp"),
		CreatedAt:      docInt(data, "createdAt"),
	}
	if rec.ReviewStatus == "" {
		rec.ReviewStatus = ReviewStatusUnderReview
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = rec.Timestamp
	}
	return rec
}

// Writes emit the canonical field set plus the legacy aliases the Android app
// still reads. Do not trim the aliases while Android clients are in the field.
func (rec ActivationRecord) toDoc() map[string]any {
	return map[string]any{
		"scanId":           rec.ScanId,
		"simSerial":        rec.SimSerial,
		"serialNumber":     rec.SimSerial,
		"idNumber":         rec.AgentId,
		"userId":           rec.AgentId,
		"baName":           rec.AgentName,
		"userName":         rec.AgentName,
		"userEmail":        rec.AgentEmail,
		"phoneNumber":      rec.PhoneNumber,
		"dealerCode":       rec.DealerCode,
		"dealerName":       rec.DealerName,
		"vanShop":          rec.VanShop,
		"location":         rec.MarketArea,
		"marketArea":       rec.MarketArea,
		"activationDate":   rec.ActivationDate,
		"reviewStatus":     string(rec.ReviewStatus),
		"scanType":         string(rec.ScanType),
		"scanStatus":       "completed",
		"isPending":        false,
		"qualityProcessed": false,
		"latitude":         rec.Latitude,
		"longitude":        rec.Longitude,
		"timestamp":        rec.Timestamp,
		"createdAt":        rec.CreatedAt,
		"syncedAt":         rec.CreatedAt,
	}
}

// CheckActivationDuplicate is the authoritative, non-cached duplicate check:
// it queries the activation collection for the serial under both historical
// field names. Fail-open: a query failure logs and reports "not a duplicate",
// because this gate is layered on top of the local and cached checks, and
// blocking all activation on a transient failure is the worse trade.
func CheckActivationDuplicate(ctx context.Context, serial string) DuplicateCheck {
	logger := config.GetLogger()

	store, err := getDocStore()
	if err != nil {
		config.LogError(logger, "activation.go", "CheckActivationDuplicate", "getDocStore", serial, err)
		return DuplicateCheck{}
	}

	for _, field := range []string{"simSerial", "serialNumber"} {
		docs, err := store.QueryEqual(ctx, collectionActivations, field, serial, 1)
		if err != nil {
			config.LogError(logger, "activation.go", "CheckActivationDuplicate", "QueryEqual "+field, serial, err)
			continue
		}
		if len(docs) > 0 {
			rec := activationFromDoc(docs[0])
			return DuplicateCheck{
				IsDuplicate: true,
				Info: &DuplicateInfo{
					AgentName:  rec.AgentName,
					DealerName: rec.DealerName,
					MarketArea: rec.MarketArea,
					Timestamp:  rec.Timestamp,
				},
			}
		}
	}
	return DuplicateCheck{}
}

// CreateActivation persists a new activation record and propagates it into
// the same-day and global caches. This is the only pipeline stage whose error
// reaches the caller: a failed write is ambiguous and a human must retry.
func CreateActivation(ctx context.Context, agent AgentIdentity, input *NewActivation, serial string) (*ActivationRecord, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := ActivationRecord{
		ScanId:         utils.GenerateScanId(now),
		SimSerial:      serial,
		AgentId:        orDefault(agent.IdNumber, "ID not available"),
		AgentName:      orDefault(agent.FullName, "Name not available"),
		AgentEmail:     orDefault(agent.Email, "Email not available"),
		PhoneNumber:    orDefault(utils.NormalizePhoneNumber(agent.PhoneNumber, utils.CountryCode), "Phone not available"),
		DealerCode:     orDefault(agent.DealerCode, "Dealer code not available"),
		DealerName:     orDefault(agent.VanShop, "Dealer name not available"),
		VanShop:        orDefault(agent.VanShop, "Van/Shop not available"),
		MarketArea:     orDefault(input.MarketArea, "Location not available"),
		ActivationDate: utils.FormatActivationDate(now),
		ReviewStatus:   ReviewStatusUnderReview,
		ScanType:       ScanTypeActivation,
		Timestamp:      now.UnixMilli(),
		CreatedAt:      now.UnixMilli(),
	}
	if input.Latitude != nil {
		rec.Latitude = *input.Latitude
	}
	if input.Longitude != nil {
		rec.Longitude = *input.Longitude
	}

	if _, err := store.Add(ctx, collectionActivations, rec.toDoc()); err != nil {
		return nil, err
	}

	RecordLocalActivation(serial, input.MarketArea, agent.IdNumber)
	appendToGlobalCache(rec)
	publishActivationCreated(ctx, rec)

	return &rec, nil
}

// GetAgentActivations lists an agent's activations, newest first. Decodes all
// historical schemas through activationFromDoc.
func GetAgentActivations(ctx context.Context, agentId string) ([]ActivationRecord, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var records []ActivationRecord
	for _, field := range []string{"idNumber", "userId"} {
		docs, err := store.QueryEqual(ctx, collectionActivations, field, agentId, 0)
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			records = append(records, activationFromDoc(doc))
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

// ListActivationsBetween returns every activation whose timestamp falls in
// [fromMillis, toMillis], newest first. Full collection scan; meant for the
// offline export tool, not for request paths.
func ListActivationsBetween(ctx context.Context, fromMillis int64, toMillis int64) ([]ActivationRecord, error) {
	store, err := getDocStore()
	if err != nil {
		return nil, err
	}

	docs, err := store.ScanAll(ctx, collectionActivations)
	if err != nil {
		return nil, err
	}

	var records []ActivationRecord
	for _, doc := range docs {
		rec := activationFromDoc(doc)
		if rec.Timestamp < fromMillis || rec.Timestamp > toMillis {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
	return records, nil
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func docString(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func docFloat(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func docInt(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
