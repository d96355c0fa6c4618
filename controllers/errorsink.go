package controllers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mconnect-bus/models"
	"mconnect-bus/utils"
)

// ErrorSink is the deduplicated, replayable incident outbox. Incidents
// are keyed by a content hash of the failing entity so the same broken
// payload is reported once, and delivery to the incidents topic follows
// the same persist-then-publish pattern as the contract tables.
type ErrorSink struct {
	store   OutboxStore
	bus     Publisher
	topic   string
	service models.ServiceInfo
	logger  *zap.Logger
}

func NewErrorSink(store OutboxStore, bus Publisher, topic string, service models.ServiceInfo, logger *zap.Logger) *ErrorSink {
	return &ErrorSink{store: store, bus: bus, topic: topic, service: service, logger: logger}
}

// Catch records a batch of error descriptors for one failing entity and
// attempts delivery. Duplicates (same entity content) are detected and
// skipped before persisting.
func (e *ErrorSink) Catch(ctx context.Context, entity string, errs []models.ErrorDescriptor) {
	sum := md5.Sum([]byte(entity))
	hash := hex.EncodeToString(sum[:])

	exists, err := e.store.ErrorExists(hash)
	if err != nil {
		e.logger.Error("error sink: dedup lookup failed", zap.Error(err))
		return
	}
	if exists {
		e.logger.Error("error sink: entity already reported", zap.String("hash", hash))
		return
	}

	now := time.Now().UTC()
	msg := models.ErrorMessage{
		ID:      uuid.NewString(),
		Date:    utils.FormatDate(now),
		Service: e.service,
		Errors:  errs,
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		e.logger.Error("error sink: encode incident", zap.Error(err))
		return
	}

	row := &models.ErrorRecord{
		ID:      msg.ID,
		Hash:    hash,
		Ts:      now,
		Data:    entity,
		Message: raw,
	}
	if err := e.store.InsertError(row); err != nil {
		e.logger.Error("error sink: persist incident", zap.String("id", msg.ID), zap.Error(err))
		return
	}

	e.send(ctx, msg.ID, raw)
}

// ResendPending republishes every incident never confirmed delivered.
func (e *ErrorSink) ResendPending(ctx context.Context) {
	pending, err := e.store.NotSentErrors()
	if err != nil {
		e.logger.Error("error sink: load pending incidents", zap.Error(err))
		return
	}
	if len(pending) == 0 {
		return
	}

	e.logger.Warn("error sink: pending incidents", zap.Int("count", len(pending)))

	for i := range pending {
		e.send(ctx, pending[i].ID, pending[i].Message)
	}
}

func (e *ErrorSink) send(ctx context.Context, id string, raw []byte) {
	if err := e.bus.Publish(ctx, e.topic, raw); err != nil {
		e.logger.Error("error sink: publish incident", zap.String("id", id), zap.Error(err))
		return
	}

	n, err := e.store.MarkErrorSent(id, time.Now().UTC())
	if err != nil {
		e.logger.Error("error sink: mark incident sent", zap.String("id", id), zap.Error(err))
		return
	}
	if n != 1 {
		e.logger.Error("error sink: send timestamp already filled", zap.String("id", id), zap.Int64("rows", n))
	}
}
