package controllers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mconnect-bus/config"
	"mconnect-bus/models"
	"mconnect-bus/utils"
	"mconnect-bus/validation"
)

// Scheduler polls the treasury status queues and reconciles the
// outbound side of the pipeline: uncommitted status events, unsent
// outbox messages, undelivered incidents. Each pass runs the
// reconciliations first so a prior crash is repaired before new queue
// entries are taken on.
type Scheduler struct {
	store    OutboxStore
	bus      Publisher
	treasury TreasuryAPI
	sink     Incidents

	outTopic string
	interval time.Duration
	routes   []config.StatusRoute
	logger   *zap.Logger
}

func NewScheduler(store OutboxStore, bus Publisher, treasury TreasuryAPI, sink Incidents,
	outTopic string, interval time.Duration, routes []config.StatusRoute, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		bus:      bus,
		treasury: treasury,
		sink:     sink,
		outTopic: outTopic,
		interval: interval,
		routes:   routes,
		logger:   logger,
	}
}

// Start runs one pass immediately, then one per tick until the context
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started")

	go func() {
		s.Run(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Run(ctx)
			}
		}
	}()
}

// Run executes one full pass: commit reconciliation, send
// reconciliation, incident redelivery, then the live queue poll.
func (s *Scheduler) Run(ctx context.Context) {
	s.commitPending(ctx)
	s.sendPending(ctx)
	s.sink.ResendPending(ctx)
	s.pollQueues(ctx)

	s.logger.Info("scheduler: sync finished", zap.Time("at", time.Now().UTC()))
}

// commitPending acknowledges every stored status event back to the
// treasury. An absent ack is a legitimate "not yet confirmable" state;
// the row stays pending for the next cycle without noise.
func (s *Scheduler) commitPending(ctx context.Context) {
	pending, err := s.store.NotCommitted()
	if err != nil {
		s.logger.Error("scheduler: load uncommitted responses", zap.Error(err))
		return
	}

	s.logger.Warn("scheduler: uncommitted treasury responses", zap.Int("count", len(pending)))

	for i := range pending {
		ok, err := s.treasury.CommitContract(ctx, pending[i].IDDoc)
		if err != nil {
			s.logger.Error("scheduler: contract commit call failed",
				zap.String("id_doc", pending[i].IDDoc), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		s.markCommitted(pending[i].IDDoc)
	}
}

// sendPending republishes every outbox message whose publish was never
// confirmed, recovering from a crash between persisting a row and the
// bus accepting it.
func (s *Scheduler) sendPending(ctx context.Context) {
	pending, err := s.store.NotSent()
	if err != nil {
		s.logger.Error("scheduler: load unsent messages", zap.Error(err))
		return
	}

	s.logger.Warn("scheduler: unsent outbound messages", zap.Int("count", len(pending)))

	for i := range pending {
		row := &pending[i]

		if err := s.bus.Publish(ctx, s.outTopic, row.Message); err != nil {
			s.logger.Error("scheduler: republish failed",
				zap.String("id_doc", row.IDDoc), zap.String("cmd_name", row.CmdName), zap.Error(err))
			continue
		}

		n, err := s.store.MarkSent(row.IDDoc, time.Now().UTC())
		if err != nil {
			s.logger.Error("scheduler: mark message sent", zap.String("id_doc", row.IDDoc), zap.Error(err))
			continue
		}
		if n != 1 {
			s.logger.Error("scheduler: send timestamp already filled",
				zap.String("id_doc", row.IDDoc), zap.Int64("rows", n))
		}
	}
}

// pollQueues fetches every configured treasury status queue and turns
// each well-formed entry into a stored status event plus an outbound
// notification.
func (s *Scheduler) pollQueues(ctx context.Context) {
	for _, route := range s.routes {
		queue, err := s.treasury.ContractsQueue(ctx, route.Code)
		if err != nil {
			s.logger.Error("scheduler: contracts queue fetch failed",
				zap.String("status_code", route.Code), zap.Error(err))
			continue
		}
		if queue == nil || len(queue.Contract) == 0 {
			continue
		}

		for i := range queue.Contract {
			s.processQueueEntry(ctx, route, &queue.Contract[i])
		}
	}
}

func (s *Scheduler) processQueueEntry(ctx context.Context, route config.StatusRoute, tc *models.TreasuryContract) {
	// Guard against malformed entries from the upstream queue.
	if !utils.ContractIDPattern.MatchString(tc.IDDok) {
		s.logger.Error("scheduler: malformed contract id in treasury queue",
			zap.String("id_dok", tc.IDDok), zap.String("status_code", route.Code))
		return
	}

	if tc.Status != route.Code {
		s.logger.Error("scheduler: queue entry status does not match polled status code",
			zap.String("id_dok", tc.IDDok), zap.String("status", tc.Status), zap.String("status_code", route.Code))
		return
	}

	// Only contracts this instance registered are processed.
	known, err := s.store.TreasuryRequestExists(tc.IDDok)
	if err != nil {
		s.logger.Error("scheduler: treasury request lookup failed", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}
	if !known {
		return
	}

	if route.RequiresRegData && (tc.RegNom == "" || tc.RegDate == "") {
		s.logger.Error("scheduler: queue entry missing registration number or date",
			zap.String("id_dok", tc.IDDok), zap.String("status_code", route.Code))
		return
	}

	rawEvent, err := json.Marshal(tc)
	if err != nil {
		s.logger.Error("scheduler: encode status event", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}

	// Last status wins: any prior uncommitted event for this contract
	// is replaced, never merged.
	event := &models.TreasuryResponse{
		IDDoc:      tc.IDDok,
		StatusCode: tc.Status,
		Message:    rawEvent,
		TsIn:       time.Now().UTC(),
	}
	if err := s.store.ReplaceTreasuryResponse(event); err != nil {
		s.logger.Error("scheduler: persist status event", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}

	out := statusMessage(route, tc)
	if descs := validation.StatusMessage(out); len(descs) > 0 {
		s.sink.Catch(ctx, string(rawEvent), descs)
		return
	}

	rawOut, err := json.Marshal(out)
	if err != nil {
		s.logger.Error("scheduler: encode outbound message", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}

	resp := &models.Response{IDDoc: tc.IDDok, CmdID: out.ID, CmdName: out.Command, Message: rawOut}
	if err := s.store.InsertResponse(resp); err != nil {
		s.logger.Error("scheduler: persist outbound message", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}

	if err := s.bus.Publish(ctx, s.outTopic, rawOut); err != nil {
		s.logger.Error("scheduler: publish outbound message", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}

	n, err := s.store.MarkSent(tc.IDDok, time.Now().UTC())
	if err != nil {
		s.logger.Error("scheduler: mark message sent", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}
	if n != 1 {
		s.logger.Error("scheduler: send timestamp already filled",
			zap.String("id_doc", tc.IDDok), zap.Int64("rows", n))
	}

	ok, err := s.treasury.CommitContract(ctx, tc.IDDok)
	if err != nil {
		s.logger.Error("scheduler: contract commit call failed", zap.String("id_doc", tc.IDDok), zap.Error(err))
		return
	}
	if !ok {
		return
	}

	s.markCommitted(tc.IDDok)
}

func (s *Scheduler) markCommitted(idDoc string) {
	n, err := s.store.MarkCommitted(idDoc, time.Now().UTC())
	if err != nil {
		s.logger.Error("scheduler: mark contract committed", zap.String("id_doc", idDoc), zap.Error(err))
		return
	}
	if n != 1 {
		s.logger.Error("scheduler: commit timestamp already filled",
			zap.String("id_doc", idDoc), zap.Int64("rows", n))
		return
	}

	s.logger.Info("scheduler: contract removed from treasury queue", zap.String("id_doc", idDoc))
}

// statusMessage maps one queue entry to its outbound notification.
func statusMessage(route config.StatusRoute, tc *models.TreasuryContract) *models.Out {
	cpid, ocid, _ := utils.ParseContractID(tc.IDDok)

	data := models.OutData{
		CPID: cpid,
		OCID: ocid,
		Verification: &models.Verification{
			Value:     tc.Status,
			Rationale: tc.Descr,
		},
		DateMet: tc.StDate,
	}
	if route.RequiresRegData {
		data.RegData = &models.RegData{ExternalRegID: tc.RegNom, RegDate: tc.RegDate}
	}

	return &models.Out{
		ID:      uuid.NewString(),
		Command: route.Command,
		Data:    data,
		Version: models.MessageVersion,
	}
}
