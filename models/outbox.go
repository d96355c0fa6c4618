package models

import (
	"time"

	"gorm.io/datatypes"
)

// The outbox tables. A nullable stage timestamp means "pending that
// stage"; reconciliation scans filter on ts IS NULL and stage marks are
// conditional updates guarded by the same predicate.

// Request records an inbound bus message, keyed by its message id.
type Request struct {
	CmdID   string         `json:"cmd_id" gorm:"column:cmd_id;primaryKey;size:64"`
	CmdName string         `json:"cmd_name" gorm:"column:cmd_name;size:64"`
	Message datatypes.JSON `json:"message" gorm:"type:jsonb"`
	Ts      *time.Time     `json:"ts" gorm:"column:ts"`
}

func (Request) TableName() string { return "requests" }

// TreasuryRequest holds a built registration payload; ts is set once
// the treasury has accepted the registration.
type TreasuryRequest struct {
	IDDoc   string         `json:"id_doc" gorm:"column:id_doc;primaryKey;size:128"`
	Message datatypes.JSON `json:"message" gorm:"type:jsonb"`
	Ts      *time.Time     `json:"ts" gorm:"column:ts"`
}

func (TreasuryRequest) TableName() string { return "treasury_requests" }

// TreasuryResponse stores a polled status event; ts_commit is set once
// the event was acknowledged back to the treasury. At most one
// uncommitted row exists per id_doc (last status wins).
type TreasuryResponse struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	IDDoc      string         `json:"id_doc" gorm:"column:id_doc;size:128;index"`
	StatusCode string         `json:"status_code" gorm:"column:status_code;size:8"`
	Message    datatypes.JSON `json:"message" gorm:"type:jsonb"`
	TsIn       time.Time      `json:"ts_in" gorm:"column:ts_in"`
	TsCommit   *time.Time     `json:"ts_commit" gorm:"column:ts_commit"`
}

func (TreasuryResponse) TableName() string { return "treasury_responses" }

// Response is an outbound bus message; ts is set only after the bus
// publish reported success. One id_doc may accumulate several rows
// (launch notice plus status notifications).
type Response struct {
	ID      uint           `json:"id" gorm:"primaryKey"`
	IDDoc   string         `json:"id_doc" gorm:"column:id_doc;size:128;index"`
	CmdID   string         `json:"cmd_id" gorm:"column:cmd_id;size:64"`
	CmdName string         `json:"cmd_name" gorm:"column:cmd_name;size:64"`
	Message datatypes.JSON `json:"message" gorm:"type:jsonb"`
	Ts      *time.Time     `json:"ts" gorm:"column:ts"`
}

func (Response) TableName() string { return "responses" }

// ErrorRecord is one deduplicated incident; hash is the content hash of
// the failing entity and ts_send marks delivery to the incidents topic.
type ErrorRecord struct {
	ID      string         `json:"id" gorm:"primaryKey;size:36"`
	Hash    string         `json:"hash" gorm:"size:32;uniqueIndex"`
	Ts      time.Time      `json:"ts"`
	Data    string         `json:"data" gorm:"type:text"`
	Message datatypes.JSON `json:"message" gorm:"type:jsonb"`
	Fixed   bool           `json:"fixed"`
	TsSend  *time.Time     `json:"ts_send" gorm:"column:ts_send"`
}

func (ErrorRecord) TableName() string { return "errors" }
