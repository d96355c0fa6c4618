package controllers

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"mconnect-bus/models"
	"mconnect-bus/validation"
)

// Error codes reported to the incidents topic during payload building.
const (
	errCodeContractRecord = "ER-3.11.2.7"
	errCodeTenderRecord   = "ER-3.11.2.8"
	errCodeAttributes     = "ER-3.11.2.9"
)

const branchesScheme = "MD-BRANCHES"

// buildRegistrationPayload assembles a treasury registration payload
// from the inbound message and the contract's own release plus the
// related tender release. Every unrecoverable failure is reported to
// the sink and nil is returned; nothing is persisted here, and nothing
// is retried until the next inbound message arrives.
func (r *Registrator) buildRegistrationPayload(ctx context.Context, msg *models.In) *models.RegisterPayload {
	rawMsg, err := json.Marshal(msg)
	if err != nil {
		return nil
	}
	entity := string(rawMsg)

	acRecord, err := r.records.EntityRecord(ctx, msg.Data.CPID, msg.Data.OCID)
	if err != nil || acRecord.Empty() || len(acRecord.Releases) == 0 {
		r.sink.Catch(ctx, entity, []models.ErrorDescriptor{{
			Code:        errCodeContractRecord,
			Description: "failed to fetch the contract record",
		}})
		return nil
	}

	release := acRecord.Releases[0]

	tenderOcid := relatedTenderOcid(release.RelatedProcesses)

	tenderRecord, err := r.records.EntityRecord(ctx, msg.Data.CPID, tenderOcid)
	if err != nil || tenderRecord.Empty() {
		r.sink.Catch(ctx, entity, []models.ErrorDescriptor{{
			Code:        errCodeTenderRecord,
			Description: "failed to fetch the tender record",
		}})
		return nil
	}

	if len(release.Contracts) == 0 {
		r.sink.Catch(ctx, entity, []models.ErrorDescriptor{{
			Code:        errCodeAttributes,
			Description: "failed to resolve a required release attribute: release carries no contracts",
		}})
		return nil
	}

	contract := release.Contracts[0]
	idDok := contract.ID + "-" + msg.Context.StartDate

	buyer := models.FindPartyByRole(release.Parties, "buyer")
	supplier := models.FindPartyByRole(release.Parties, "supplier")

	payload := &models.RegisterPayload{
		Header: models.PayloadHeader{
			IDDok: idDok,
			NrDok: contract.ID,
			DaDok: contract.Date,

			Suma:  contract.Value.Amount,
			KdVal: contract.Value.Currency,

			Desc: contract.Description,

			AchizNom:  tenderOcid,
			AchizDate: tenderRecord.PublishedDate,

			DaExpire: contract.Period.EndDate,
			CLink:    latestSignedDocumentURL(contract.Documents),
		},
		Benef:   supplierAccounts(release.Parties, idDok),
		Details: budgetDetails(msg.Data.TreasuryBudgetSources, release.Planning.Budget.BudgetAllocation, idDok),
	}

	if buyer != nil {
		payload.Header.PkdFisk = buyer.Identifier.ID
		payload.Header.Pname = buyer.Identifier.LegalName
		payload.Header.PkdSdiv = branchIdentifier(buyer.AdditionalIdentifiers)
	}
	if supplier != nil {
		payload.Header.BkdFisk = supplier.Identifier.ID
		payload.Header.Bname = supplier.Identifier.LegalName
		payload.Header.BkdSdiv = branchIdentifier(supplier.AdditionalIdentifiers)
	}

	if advance, ok := advanceAmount(release.Planning.Implementation.Transactions); ok && contract.Value.Amount > advance {
		avans := advance * 100 / contract.Value.Amount
		payload.Header.Avans = &avans
	}

	if err := validation.Struct(payload); err != nil {
		r.sink.Catch(ctx, entity, validation.Descriptors(errCodeAttributes, err))
		return nil
	}

	return payload
}

// relatedTenderOcid locates the evaluation/negotiation process this
// contract came from; its identifier becomes achiz_nom.
func relatedTenderOcid(processes []models.RelatedProcess) string {
	for _, p := range processes {
		for _, rel := range p.Relationship {
			if rel == "x_evaluation" || rel == "x_negotiation" {
				return p.Identifier
			}
		}
	}

	return ""
}

func branchIdentifier(ids []models.AdditionalIdentifier) string {
	for _, id := range ids {
		if id.Scheme == branchesScheme {
			return id.ID
		}
	}

	return ""
}

func advanceAmount(transactions []models.Transaction) (float64, bool) {
	for _, t := range transactions {
		if t.Type == "advance" {
			return t.Value.Amount, true
		}
	}

	return 0, false
}

// latestSignedDocumentURL picks the most recently published
// contractSigned document's URL; empty when no such document exists
// (validation rejects the payload in that case).
func latestSignedDocumentURL(docs []models.Document) string {
	signed := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if d.DocumentType == "contractSigned" {
			signed = append(signed, d)
		}
	}
	if len(signed) == 0 {
		return ""
	}

	sort.Slice(signed, func(i, j int) bool {
		return signed[i].DatePublished > signed[j].DatePublished
	})

	return signed[0].URL
}

// supplierAccounts builds one benef row per supplier organization's
// first bank account.
func supplierAccounts(parties []models.Party, idDok string) []models.Benef {
	var benef []models.Benef
	for i := range parties {
		if !hasRole(&parties[i], "supplier") {
			continue
		}
		accounts := parties[i].Details.BankAccounts
		if len(accounts) == 0 {
			continue
		}
		benef = append(benef, models.Benef{
			IDDok: idDok,
			Bbic:  accounts[0].Identifier.ID,
			Biban: accounts[0].AccountIdentification.ID,
		})
	}

	return benef
}

func hasRole(p *models.Party, role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}

	return false
}

// budgetDetails resolves each inbound budget source against the
// release's budget allocations by breakdown id; byear is the
// allocation's start year.
func budgetDetails(sources []models.TreasuryBudgetSource, allocations []models.BudgetAllocation, idDok string) []models.Detail {
	details := make([]models.Detail, 0, len(sources))
	for _, src := range sources {
		startDate := ""
		for _, alloc := range allocations {
			if alloc.BudgetBreakdownID == src.BudgetBreakdownID {
				startDate = alloc.Period.StartDate
				break
			}
		}

		byear := 0
		if len(startDate) >= 4 {
			byear, _ = strconv.Atoi(startDate[:4])
		}

		details = append(details, models.Detail{
			IDDok: idDok,
			Suma:  src.Amount,
			Piban: src.BudgetIBAN,
			Byear: byear,
		})
	}

	return details
}
