package controllers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mconnect-bus/models"
)

func TestPayloadReportsMissingContractRecord(t *testing.T) {
	r, _, _, _, records, sink := newTestRegistrator()
	delete(records.records, testCPID+"/"+testOCID)

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	assert.Nil(t, payload)
	require.Len(t, sink.caught, 1)
	require.Len(t, sink.caught[0].errs, 1)
	assert.Equal(t, "ER-3.11.2.7", sink.caught[0].errs[0].Code)
}

func TestPayloadReportsMissingTenderRecord(t *testing.T) {
	r, _, _, _, records, sink := newTestRegistrator()
	delete(records.records, testCPID+"/"+testTenderOCID)

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	assert.Nil(t, payload)
	require.Len(t, sink.caught, 1)
	assert.Equal(t, "ER-3.11.2.8", sink.caught[0].errs[0].Code)
}

func TestPayloadReportsReleaseWithoutContracts(t *testing.T) {
	r, _, _, _, records, sink := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Contracts = nil
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	assert.Nil(t, payload)
	require.Len(t, sink.caught, 1)
	assert.Equal(t, "ER-3.11.2.9", sink.caught[0].errs[0].Code)
}

func TestPayloadValidationFailureGoesToSink(t *testing.T) {
	r, _, _, _, records, sink := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Parties[1].Details.BankAccounts = nil
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	assert.Nil(t, payload)
	require.Len(t, sink.caught, 1)
	require.NotEmpty(t, sink.caught[0].errs)
	assert.Equal(t, "ER-3.11.2.9", sink.caught[0].errs[0].Code)
	assert.Contains(t, sink.caught[0].errs[0].Description, "Benef")
}

func TestPayloadUnmatchedBudgetSourceFailsValidation(t *testing.T) {
	r, _, _, _, _, sink := newTestRegistrator()

	msg := inboundMessage()
	msg.Data.TreasuryBudgetSources[0].BudgetBreakdownID = "bb-unknown"
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	// No matching allocation means no budget year, which the payload
	// rules reject.
	assert.Nil(t, payload)
	require.Len(t, sink.caught, 1)
	assert.Equal(t, "ER-3.11.2.9", sink.caught[0].errs[0].Code)
	assert.Contains(t, sink.caught[0].errs[0].Description, "Byear")
}

func TestPayloadOmitsAdvanceWhenNotBelowTotal(t *testing.T) {
	r, _, _, _, records, _ := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Planning.Implementation.Transactions[0].Value.Amount = 10000
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	require.NotNil(t, payload)
	assert.Nil(t, payload.Header.Avans)
}

func TestPayloadOmitsAdvanceWithoutAdvanceTransaction(t *testing.T) {
	r, _, _, _, records, _ := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Planning.Implementation.Transactions = nil
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	require.NotNil(t, payload)
	assert.Nil(t, payload.Header.Avans)
}

func TestPayloadPicksLatestSignedDocument(t *testing.T) {
	r, _, _, _, records, _ := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Contracts[0].Documents = append(rec.Releases[0].Contracts[0].Documents,
		models.Document{DocumentType: "contractSigned", DatePublished: "2020-02-01T10:00:00Z", URL: "http://example.md/doc-final.pdf"})
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	require.NotNil(t, payload)
	assert.Equal(t, "http://example.md/doc-final.pdf", payload.Header.CLink)
}

func TestPayloadOneBenefRowPerSupplierAccount(t *testing.T) {
	r, _, _, _, records, _ := newTestRegistrator()
	rec := contractRecord()
	rec.Releases[0].Parties = append(rec.Releases[0].Parties, models.Party{
		Identifier: models.Identifier{ID: "1003600000002", LegalName: "Second Supplier"},
		Roles:      []string{"supplier"},
		Details: models.PartyDetails{BankAccounts: []models.BankAccount{{
			Identifier:            models.AccountID{ID: "AGRNMD2X"},
			AccountIdentification: models.AccountID{ID: "MD88AG000000033562"},
		}}},
	})
	records.records[testCPID+"/"+testOCID] = rec

	msg := inboundMessage()
	payload := r.buildRegistrationPayload(context.Background(), &msg)

	require.NotNil(t, payload)
	require.Len(t, payload.Benef, 2)
	assert.Equal(t, "AGRNMD2X", payload.Benef[1].Bbic)
	assert.Equal(t, testIDDoc, payload.Benef[1].IDDok)
}
