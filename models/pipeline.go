package models

import (
	"context"

	"bitbucket.org/mmdatafocus/simfield_backend/config"
	"bitbucket.org/mmdatafocus/simfield_backend/utils"
	"github.com/sirupsen/logrus"
)

// One activation attempt runs the stages strictly in order, each able to
// short-circuit the rest with a specific rejection:
//
//   fingerprint extraction -> same-day local cache -> stock validation
//   -> cached cross-agent duplicate -> remote duplicate -> write -> caches
//
// Rejections are explicit outcome values, not errors; the only error this
// function returns is a failed terminal write, which the caller must surface
// for a human retry. Two concurrent attempts on the same serial from two
// clients can still both pass the checks and both write (no server-side
// uniqueness constraint exists); that race is a known, documented gap and the
// review process is the audit backstop.

type RejectReason string

const (
	RejectInvalidFormat  RejectReason = "invalid_format"
	RejectLocalDuplicate RejectReason = "local_duplicate"
	RejectNotInStock     RejectReason = "not_in_stock"
	RejectDuplicate      RejectReason = "duplicate"
)

type ActivationOutcome struct {
	ActivationId string         `json:"activation_id,omitempty"`
	Rejected     bool           `json:"rejected"`
	Reason       RejectReason   `json:"reason,omitempty"`
	Message      string         `json:"message,omitempty"`
	Duplicate    *DuplicateInfo `json:"duplicate,omitempty"`
}

func rejected(reason RejectReason, message string) *ActivationOutcome {
	return &ActivationOutcome{Rejected: true, Reason: reason, Message: message}
}

// ActivateSerial runs the full pipeline for one raw serial input.
func ActivateSerial(ctx context.Context, agent AgentIdentity, input *NewActivation) (*ActivationOutcome, error) {
	logger := config.GetLogger()

	serial := ExtractSerialFingerprint(input.Serial)
	if serial == "" || !IsValidSerialFormat(serial) {
		return rejected(RejectInvalidFormat, utils.ErrorInvalidSerialFormat.Error()), nil
	}

	if IsDuplicateToday(serial, agent.IdNumber) {
		return rejected(RejectLocalDuplicate, utils.ErrorDuplicateToday.Error()), nil
	}

	if !IsSerialInStock(ctx, serial) {
		return rejected(RejectNotInStock, utils.ErrorSerialNotInStock.Error()), nil
	}

	if IsDuplicateCached(serial) {
		return rejected(RejectDuplicate, utils.ErrorDuplicateSerial.Error()), nil
	}

	if check := CheckActivationDuplicate(ctx, serial); check.IsDuplicate {
		outcome := rejected(RejectDuplicate, utils.ErrorDuplicateSerial.Error())
		outcome.Duplicate = check.Info
		return outcome, nil
	}

	rec, err := CreateActivation(ctx, agent, input, serial)
	if err != nil {
		config.LogError(logger, "pipeline.go", "ActivateSerial", "CreateActivation", serial, err)
		return nil, utils.ErrorActivationFailed
	}

	logger.WithFields(logrus.Fields{
		"module":   "pipeline.go",
		"scan_id":  rec.ScanId,
		"agent_id": rec.AgentId,
		"market":   rec.MarketArea,
	}).Info("sim activation submitted")

	return &ActivationOutcome{ActivationId: rec.ScanId}, nil
}
