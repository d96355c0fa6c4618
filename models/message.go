package models

// Commands and message version exchanged with the procurement platform.
const (
	CommandSendForVerification   = "sendAcForVerification"
	CommandLaunchVerification    = "launchAcVerification"
	CommandTreasuryApproving     = "treasuryApprovingAc"
	CommandRequestClarification  = "requestForAcClarification"
	CommandProcessRejection      = "processAcRejection"

	MessageVersion = "0.0.1"
)

// In is the inbound verification request consumed from the bus.
type In struct {
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Context InContext `json:"context"`
	Data    InData    `json:"data"`
	Version string    `json:"version"`
}

type InContext struct {
	Country   string `json:"country"`
	StartDate string `json:"startDate"`
}

type InData struct {
	CPID                  string                 `json:"cpid"`
	OCID                  string                 `json:"ocid"`
	TreasuryBudgetSources []TreasuryBudgetSource `json:"treasuryBudgetSources"`
}

type TreasuryBudgetSource struct {
	BudgetBreakdownID string  `json:"budgetBreakdownID"`
	BudgetIBAN        string  `json:"budgetIBAN"`
	Amount            float64 `json:"amount"`
}

// Out is a message published back to the bus: either the launch
// verification notice or one of the treasury status notifications.
type Out struct {
	ID      string  `json:"id" validate:"required"`
	Command string  `json:"command" validate:"required"`
	Data    OutData `json:"data" validate:"required"`
	Version string  `json:"version" validate:"required"`
}

type OutData struct {
	CPID         string        `json:"cpid" validate:"required,cpid"`
	OCID         string        `json:"ocid" validate:"required,ocid_contract"`
	Verification *Verification `json:"verification,omitempty"`
	DateMet      string        `json:"dateMet,omitempty" validate:"omitempty,iso_date"`
	RegData      *RegData      `json:"regData,omitempty"`
}

type Verification struct {
	Value     string `json:"value" validate:"required,oneof=3004 3005 3006"`
	Rationale string `json:"rationale" validate:"required"`
}

type RegData struct {
	ExternalRegID string `json:"externalRegId" validate:"required"`
	RegDate       string `json:"regDate" validate:"required"`
}

// ErrorMessage is the incident record delivered to the incidents topic.
type ErrorMessage struct {
	ID      string            `json:"id"`
	Date    string            `json:"date"`
	Service ServiceInfo       `json:"service"`
	Errors  []ErrorDescriptor `json:"errors"`
}

type ServiceInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ErrorDescriptor struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metaData,omitempty"`
}
