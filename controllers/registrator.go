package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mconnect-bus/models"
	"mconnect-bus/utils"
)

// Registrator ingests verification requests from the bus and reconciles
// every payload the treasury never confirmed registered. Ingestion only
// persists; the treasury call happens exclusively in the reconciliation
// pass, so a slow or failing treasury never blocks the consumer.
type Registrator struct {
	store    OutboxStore
	bus      Publisher
	treasury TreasuryAPI
	records  RecordsAPI
	sink     Incidents

	outTopic string
	interval time.Duration
	logger   *zap.Logger

	// StopOnFailure restores the historical behavior of aborting the
	// whole reconciliation pass on the first failed registration.
	StopOnFailure bool
}

func NewRegistrator(store OutboxStore, bus Publisher, treasury TreasuryAPI, records RecordsAPI,
	sink Incidents, outTopic string, interval time.Duration, logger *zap.Logger) *Registrator {
	return &Registrator{
		store:    store,
		bus:      bus,
		treasury: treasury,
		records:  records,
		sink:     sink,
		outTopic: outTopic,
		interval: interval,
		logger:   logger,
	}
}

// Start runs one reconciliation pass immediately, then one per tick
// until the context is cancelled. Crash recovery and steady state share
// this single code path.
func (r *Registrator) Start(ctx context.Context) {
	r.logger.Info("registrator started")

	go func() {
		r.Reconcile(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Reconcile(ctx)
			}
		}
	}()
}

// HandleMessage is the bus consumer callback. It never returns an error
// to the consumer loop; every failure is logged and the message dropped
// (the platform redelivers, and ingestion is idempotent).
func (r *Registrator) HandleMessage(body []byte) {
	var msg models.In
	if err := json.Unmarshal(body, &msg); err != nil {
		r.logger.Error("registrator: unreadable inbound message", zap.Error(err))
		return
	}

	if msg.Command != models.CommandSendForVerification {
		return
	}

	ctx := context.Background()
	idDoc := utils.ContractID(msg.Data.OCID, msg.Context.StartDate)

	exists, err := r.store.RequestExists(msg.ID)
	if err != nil {
		r.logger.Error("registrator: request lookup failed", zap.String("cmd_id", msg.ID), zap.Error(err))
		return
	}
	if exists {
		// Duplicate delivery is tolerated, not rejected: the bus is
		// at-least-once. Skip only if the payload is already staged.
		r.logger.Warn("registrator: inbound message already recorded",
			zap.String("cmd_id", msg.ID), zap.String("ocid", msg.Data.OCID))

		staged, err := r.store.TreasuryRequestExists(idDoc)
		if err != nil {
			r.logger.Error("registrator: treasury request lookup failed", zap.String("id_doc", idDoc), zap.Error(err))
			return
		}
		if staged {
			r.logger.Warn("registrator: contract already staged for registration", zap.String("id_doc", idDoc))
			return
		}
	}

	payload := r.buildRegistrationPayload(ctx, &msg)
	if payload == nil {
		r.logger.Error("registrator: failed to generate registration payload", zap.String("ocid", msg.Data.OCID))
		return
	}

	if !exists {
		now := time.Now().UTC()
		req := &models.Request{CmdID: msg.ID, CmdName: msg.Command, Message: body, Ts: &now}
		if err := r.store.InsertRequest(req); err != nil {
			r.logger.Error("registrator: persist inbound message", zap.String("cmd_id", msg.ID), zap.Error(err))
			return
		}
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("registrator: encode registration payload", zap.String("id_doc", idDoc), zap.Error(err))
		return
	}

	row := &models.TreasuryRequest{IDDoc: idDoc, Message: rawPayload}
	if err := r.store.InsertTreasuryRequest(row); err != nil {
		r.logger.Error("registrator: persist registration payload", zap.String("id_doc", idDoc), zap.Error(err))
		return
	}

	r.logger.Info("registrator: contract staged for registration", zap.String("id_doc", idDoc))
}

// Reconcile registers every pending payload with the treasury and
// delivers the launch verification notice. Failed rows stay pending for
// the next tick.
func (r *Registrator) Reconcile(ctx context.Context) {
	pending, err := r.store.NotRegistered()
	if err != nil {
		r.logger.Error("registrator: load pending registrations", zap.Error(err))
		return
	}

	r.logger.Warn("registrator: pending registrations", zap.Int("count", len(pending)))

	for i := range pending {
		if err := r.registerContract(ctx, &pending[i]); err != nil {
			r.logger.Error("registrator: contract registration failed",
				zap.String("id_doc", pending[i].IDDoc), zap.Error(err))
			if r.StopOnFailure {
				return
			}
		}
	}
}

func (r *Registrator) registerContract(ctx context.Context, row *models.TreasuryRequest) error {
	var payload models.RegisterPayload
	if err := json.Unmarshal(row.Message, &payload); err != nil {
		return fmt.Errorf("decode stored payload: %w", err)
	}

	ack, err := r.treasury.RegisterContract(ctx, &payload)
	if err != nil {
		return fmt.Errorf("treasury register call: %w", err)
	}
	if ack == nil {
		return errors.New("no response from treasury")
	}
	if ack.IDDok != row.IDDoc {
		return fmt.Errorf("treasury response id %q does not match contract id", ack.IDDok)
	}

	out, err := launchMessage(row.IDDoc)
	if err != nil {
		return err
	}

	sent, err := r.store.ResponseExists(row.IDDoc)
	if err != nil {
		return fmt.Errorf("response lookup: %w", err)
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode launch message: %w", err)
	}

	if !sent {
		resp := &models.Response{IDDoc: row.IDDoc, CmdID: out.ID, CmdName: out.Command, Message: raw}
		if err := r.store.InsertResponse(resp); err != nil {
			return fmt.Errorf("persist launch message: %w", err)
		}
	}

	n, err := r.store.MarkRegistered(row.IDDoc, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark registered: %w", err)
	}
	if n != 1 {
		// The ts IS NULL guard makes this impossible under correct
		// sequencing; if it fires, something else marked the row.
		return fmt.Errorf("registration timestamp already filled (%d rows affected)", n)
	}

	r.logger.Info("registrator: contract registered", zap.String("id_doc", row.IDDoc))

	if err := r.bus.Publish(ctx, r.outTopic, raw); err != nil {
		return fmt.Errorf("publish launch message: %w", err)
	}

	if n, err := r.store.MarkSent(row.IDDoc, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark launch message sent: %w", err)
	} else if n != 1 {
		r.logger.Error("registrator: send timestamp already filled",
			zap.String("id_doc", row.IDDoc), zap.Int64("rows", n))
	}

	return nil
}

// launchMessage derives the launch verification notice from an id_doc.
func launchMessage(idDoc string) (*models.Out, error) {
	cpid, ocid, ok := utils.ParseContractID(idDoc)
	if !ok {
		return nil, fmt.Errorf("contract id %q does not match the document id pattern", idDoc)
	}

	return &models.Out{
		ID:      uuid.NewString(),
		Command: models.CommandLaunchVerification,
		Data:    models.OutData{CPID: cpid, OCID: ocid},
		Version: models.MessageVersion,
	}, nil
}
