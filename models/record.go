package models

// Record is a released procurement record fetched from the platform.
// Only the branches the payload builder reads are modeled; everything
// else in the upstream document is ignored on decode.
type Record struct {
	PublishedDate string    `json:"publishedDate"`
	Releases      []Release `json:"releases"`
}

// Empty reports whether the record carries no usable content.
func (r *Record) Empty() bool {
	return r == nil || (r.PublishedDate == "" && len(r.Releases) == 0)
}

type Release struct {
	Planning         Planning         `json:"planning"`
	Contracts        []Contract       `json:"contracts"`
	Parties          []Party          `json:"parties"`
	RelatedProcesses []RelatedProcess `json:"relatedProcesses"`
}

type Planning struct {
	Budget         Budget         `json:"budget"`
	Implementation Implementation `json:"implementation"`
}

type Budget struct {
	BudgetAllocation []BudgetAllocation `json:"budgetAllocation"`
}

type BudgetAllocation struct {
	BudgetBreakdownID string `json:"budgetBreakdownID"`
	Period            Period `json:"period"`
}

type Implementation struct {
	Transactions []Transaction `json:"transactions"`
}

type Transaction struct {
	Type  string `json:"type"`
	Value Amount `json:"value"`
}

type Contract struct {
	ID          string     `json:"id"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Value       Amount     `json:"value"`
	Period      Period     `json:"period"`
	Documents   []Document `json:"documents"`
}

type Amount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type Period struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Document struct {
	DocumentType  string `json:"documentType"`
	DatePublished string `json:"datePublished"`
	URL           string `json:"url"`
}

type Party struct {
	Identifier            Identifier             `json:"identifier"`
	AdditionalIdentifiers []AdditionalIdentifier `json:"additionalIdentifiers"`
	Roles                 []string               `json:"roles"`
	Details               PartyDetails           `json:"details"`
}

type Identifier struct {
	ID        string `json:"id"`
	LegalName string `json:"legalName"`
}

type AdditionalIdentifier struct {
	Scheme string `json:"scheme"`
	ID     string `json:"id"`
}

type PartyDetails struct {
	BankAccounts []BankAccount `json:"bankAccounts"`
}

type BankAccount struct {
	Identifier            AccountID `json:"identifier"`
	AccountIdentification AccountID `json:"accountIdentification"`
}

type AccountID struct {
	ID string `json:"id"`
}

type RelatedProcess struct {
	Relationship []string `json:"relationship"`
	Identifier   string   `json:"identifier"`
}

// FindPartyByRole returns the first party tagged with role, or nil.
func FindPartyByRole(parties []Party, role string) *Party {
	for i := range parties {
		for _, r := range parties[i].Roles {
			if r == role {
				return &parties[i]
			}
		}
	}

	return nil
}
