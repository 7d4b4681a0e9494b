package models

import (
	"context"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
	"github.com/google/uuid"
)

// publishActivationCreated hands the new record to the quality-review
// pipeline. Best-effort by contract: the record is already durably written,
// and the review pipeline periodically reconciles from the collection anyway,
// so a lost event is an acceptable delay rather than data loss.
func publishActivationCreated(ctx context.Context, rec ActivationRecord) {
	correlationId, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || correlationId == "" {
		correlationId = uuid.NewString()
	}

	event := config.ActivationEvent{
		ActivationId:  rec.ScanId,
		SimSerial:     rec.SimSerial,
		AgentId:       rec.AgentId,
		AgentName:     rec.AgentName,
		DealerCode:    rec.DealerCode,
		MarketArea:    rec.MarketArea,
		ReviewStatus:  string(rec.ReviewStatus),
		Latitude:      rec.Latitude,
		Longitude:     rec.Longitude,
		Timestamp:     rec.Timestamp,
		CorrelationId: correlationId,
	}

	// Detached from the request context: the publish outliving the HTTP
	// request is fine, the request failing must not depend on it.
	go func() {
		if _, err := config.PublishActivationEvent(context.Background(), event); err != nil {
			config.LogError(config.GetLogger(), "events.go", "publishActivationCreated", "PublishActivationEvent", event.ActivationId, err)
		}
	}()
}
