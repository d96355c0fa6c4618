package controllers

import (
	"context"
	"errors"
	"time"

	"mconnect-bus/models"
)

const (
	testCPID       = "ocds-abc123-MD-1111111111111"
	testOCID       = testCPID + "-AC-2222222222222"
	testTenderOCID = testCPID + "-EV-3333333333333"
	testStartDate  = "2020-01-01T00:00:00Z"
	testIDDoc      = testOCID + "-" + testStartDate
)

// fakeStore is an in-memory OutboxStore with the same conditional-mark
// semantics as the database-backed one.
type fakeStore struct {
	requests         map[string]*models.Request
	treasuryRequests map[string]*models.TreasuryRequest
	treasuryOrder    []string
	responses        []*models.Response
	events           []*models.TreasuryResponse
	incidents        []*models.ErrorRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:         map[string]*models.Request{},
		treasuryRequests: map[string]*models.TreasuryRequest{},
	}
}

func (f *fakeStore) RequestExists(cmdID string) (bool, error) {
	_, ok := f.requests[cmdID]
	return ok, nil
}

func (f *fakeStore) InsertRequest(row *models.Request) error {
	if _, ok := f.requests[row.CmdID]; ok {
		return errors.New("duplicate cmd_id")
	}
	f.requests[row.CmdID] = row
	return nil
}

func (f *fakeStore) TreasuryRequestExists(idDoc string) (bool, error) {
	_, ok := f.treasuryRequests[idDoc]
	return ok, nil
}

func (f *fakeStore) InsertTreasuryRequest(row *models.TreasuryRequest) error {
	if _, ok := f.treasuryRequests[row.IDDoc]; ok {
		return errors.New("duplicate id_doc")
	}
	f.treasuryRequests[row.IDDoc] = row
	f.treasuryOrder = append(f.treasuryOrder, row.IDDoc)
	return nil
}

func (f *fakeStore) NotRegistered() ([]models.TreasuryRequest, error) {
	var rows []models.TreasuryRequest
	for _, id := range f.treasuryOrder {
		if row := f.treasuryRequests[id]; row.Ts == nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeStore) MarkRegistered(idDoc string, at time.Time) (int64, error) {
	row, ok := f.treasuryRequests[idDoc]
	if !ok || row.Ts != nil {
		return 0, nil
	}
	row.Ts = &at
	return 1, nil
}

func (f *fakeStore) ResponseExists(idDoc string) (bool, error) {
	for _, row := range f.responses {
		if row.IDDoc == idDoc {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertResponse(row *models.Response) error {
	f.responses = append(f.responses, row)
	return nil
}

func (f *fakeStore) NotSent() ([]models.Response, error) {
	var rows []models.Response
	for _, row := range f.responses {
		if row.Ts == nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeStore) MarkSent(idDoc string, at time.Time) (int64, error) {
	var n int64
	for _, row := range f.responses {
		if row.IDDoc == idDoc && row.Ts == nil {
			row.Ts = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ReplaceTreasuryResponse(row *models.TreasuryResponse) error {
	kept := f.events[:0]
	for _, ev := range f.events {
		if ev.IDDoc == row.IDDoc && ev.TsCommit == nil {
			continue
		}
		kept = append(kept, ev)
	}
	f.events = append(kept, row)
	return nil
}

func (f *fakeStore) NotCommitted() ([]models.TreasuryResponse, error) {
	var rows []models.TreasuryResponse
	for _, ev := range f.events {
		if ev.TsCommit == nil {
			rows = append(rows, *ev)
		}
	}
	return rows, nil
}

func (f *fakeStore) MarkCommitted(idDoc string, at time.Time) (int64, error) {
	var n int64
	for _, ev := range f.events {
		if ev.IDDoc == idDoc && ev.TsCommit == nil {
			ev.TsCommit = &at
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ErrorExists(hash string) (bool, error) {
	for _, row := range f.incidents {
		if row.Hash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertError(row *models.ErrorRecord) error {
	for _, r := range f.incidents {
		if r.Hash == row.Hash {
			return errors.New("duplicate hash")
		}
	}
	f.incidents = append(f.incidents, row)
	return nil
}

func (f *fakeStore) NotSentErrors() ([]models.ErrorRecord, error) {
	var rows []models.ErrorRecord
	for _, row := range f.incidents {
		if row.TsSend == nil {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (f *fakeStore) MarkErrorSent(id string, at time.Time) (int64, error) {
	var n int64
	for _, row := range f.incidents {
		if row.ID == id && row.TsSend == nil {
			row.TsSend = &at
			n++
		}
	}
	return n, nil
}

type fakeBus struct {
	published map[string][][]byte
	err       error
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: map[string][][]byte{}}
}

func (f *fakeBus) Publish(_ context.Context, queue string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published[queue] = append(f.published[queue], body)
	return nil
}

type fakeTreasury struct {
	// registerFn overrides the default echo acknowledgement.
	registerFn    func(p *models.RegisterPayload) (*models.RegisterResponse, error)
	registerCalls []string

	queues   map[string][]models.TreasuryContract
	queueErr error

	commitOK    bool
	commitErr   error
	commitCalls []string
}

func (f *fakeTreasury) RegisterContract(_ context.Context, p *models.RegisterPayload) (*models.RegisterResponse, error) {
	f.registerCalls = append(f.registerCalls, p.Header.IDDok)
	if f.registerFn != nil {
		return f.registerFn(p)
	}
	return &models.RegisterResponse{IDDok: p.Header.IDDok, NumRow: "1"}, nil
}

func (f *fakeTreasury) ContractsQueue(_ context.Context, statusCode string) (*models.QueueResponse, error) {
	if f.queueErr != nil {
		return nil, f.queueErr
	}
	contracts, ok := f.queues[statusCode]
	if !ok {
		return nil, nil
	}
	return &models.QueueResponse{Contract: contracts}, nil
}

func (f *fakeTreasury) CommitContract(_ context.Context, idDoc string) (bool, error) {
	f.commitCalls = append(f.commitCalls, idDoc)
	if f.commitErr != nil {
		return false, f.commitErr
	}
	return f.commitOK, nil
}

type fakeRecords struct {
	records map[string]*models.Record
	err     error
}

func (f *fakeRecords) EntityRecord(_ context.Context, cpid, ocid string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[cpid+"/"+ocid], nil
}

type sinkCall struct {
	entity string
	errs   []models.ErrorDescriptor
}

type fakeSink struct {
	caught  []sinkCall
	resends int
}

func (f *fakeSink) Catch(_ context.Context, entity string, errs []models.ErrorDescriptor) {
	f.caught = append(f.caught, sinkCall{entity: entity, errs: errs})
}

func (f *fakeSink) ResendPending(_ context.Context) {
	f.resends++
}

// contractRecord is a complete contract release the payload builder can
// turn into a valid registration document.
func contractRecord() *models.Record {
	return &models.Record{
		PublishedDate: "2020-01-02T00:00:00Z",
		Releases: []models.Release{{
			Planning: models.Planning{
				Budget: models.Budget{BudgetAllocation: []models.BudgetAllocation{{
					BudgetBreakdownID: "bb-1",
					Period:            models.Period{StartDate: "2020-01-01T00:00:00Z"},
				}}},
				Implementation: models.Implementation{Transactions: []models.Transaction{{
					Type:  "advance",
					Value: models.Amount{Amount: 3500},
				}}},
			},
			Contracts: []models.Contract{{
				ID:          testOCID,
				Date:        "2020-01-01T10:00:00Z",
				Description: "road repair works",
				Value:       models.Amount{Amount: 10000, Currency: "MDL"},
				Period:      models.Period{EndDate: "2020-12-31T00:00:00Z"},
				Documents: []models.Document{
					{DocumentType: "contractSigned", DatePublished: "2020-01-01T10:00:00Z", URL: "http://example.md/doc-old.pdf"},
					{DocumentType: "contractSigned", DatePublished: "2020-01-02T10:00:00Z", URL: "http://example.md/doc.pdf"},
					{DocumentType: "contractNotice", DatePublished: "2020-01-03T10:00:00Z", URL: "http://example.md/notice.pdf"},
				},
			}},
			Parties: []models.Party{
				{
					Identifier:            models.Identifier{ID: "1003600000000", LegalName: "Buyer Org"},
					AdditionalIdentifiers: []models.AdditionalIdentifier{{Scheme: "MD-BRANCHES", ID: "branch-7"}},
					Roles:                 []string{"buyer"},
				},
				{
					Identifier: models.Identifier{ID: "1003600000001", LegalName: "Supplier Org"},
					Roles:      []string{"supplier"},
					Details: models.PartyDetails{BankAccounts: []models.BankAccount{{
						Identifier:            models.AccountID{ID: "VICBMD2X"},
						AccountIdentification: models.AccountID{ID: "MD24VI000000022451"},
					}}},
				},
			},
			RelatedProcesses: []models.RelatedProcess{{
				Relationship: []string{"x_evaluation"},
				Identifier:   testTenderOCID,
			}},
		}},
	}
}

func tenderRecord() *models.Record {
	return &models.Record{PublishedDate: "2019-12-01T00:00:00Z"}
}

func inboundMessage() models.In {
	return models.In{
		ID:      "cmd-0001",
		Command: models.CommandSendForVerification,
		Context: models.InContext{Country: "MD", StartDate: testStartDate},
		Data: models.InData{
			CPID: testCPID,
			OCID: testOCID,
			TreasuryBudgetSources: []models.TreasuryBudgetSource{{
				BudgetBreakdownID: "bb-1",
				BudgetIBAN:        "MD95TR000000000000000001",
				Amount:            10000,
			}},
		},
		Version: models.MessageVersion,
	}
}

func allRecords() map[string]*models.Record {
	return map[string]*models.Record{
		testCPID + "/" + testOCID:       contractRecord(),
		testCPID + "/" + testTenderOCID: tenderRecord(),
	}
}
