// Package controllers holds the two reconciliation controllers, the
// payload builder and the error sink. All external collaborators come
// in through the interfaces below so tests can substitute fakes.
package controllers

import (
	"context"
	"time"

	"mconnect-bus/models"
)

// OutboxStore is the durable outbox the controllers operate on.
// Conditional stage marks return the affected-row count; anything other
// than exactly one row is an anomaly for the caller to log.
type OutboxStore interface {
	RequestExists(cmdID string) (bool, error)
	InsertRequest(row *models.Request) error

	TreasuryRequestExists(idDoc string) (bool, error)
	InsertTreasuryRequest(row *models.TreasuryRequest) error
	NotRegistered() ([]models.TreasuryRequest, error)
	MarkRegistered(idDoc string, at time.Time) (int64, error)

	ResponseExists(idDoc string) (bool, error)
	InsertResponse(row *models.Response) error
	NotSent() ([]models.Response, error)
	MarkSent(idDoc string, at time.Time) (int64, error)

	ReplaceTreasuryResponse(row *models.TreasuryResponse) error
	NotCommitted() ([]models.TreasuryResponse, error)
	MarkCommitted(idDoc string, at time.Time) (int64, error)

	ErrorExists(hash string) (bool, error)
	InsertError(row *models.ErrorRecord) error
	NotSentErrors() ([]models.ErrorRecord, error)
	MarkErrorSent(id string, at time.Time) (int64, error)
}

// Publisher delivers messages to the bus; a nil error means the broker
// accepted the publish.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// TreasuryAPI is the treasury registration/status service.
// Absent responses are (nil, nil) / (false, nil).
type TreasuryAPI interface {
	RegisterContract(ctx context.Context, payload *models.RegisterPayload) (*models.RegisterResponse, error)
	ContractsQueue(ctx context.Context, statusCode string) (*models.QueueResponse, error)
	CommitContract(ctx context.Context, idDoc string) (bool, error)
}

// RecordsAPI fetches released procurement records.
type RecordsAPI interface {
	EntityRecord(ctx context.Context, cpid, ocid string) (*models.Record, error)
}

// Incidents receives unrecoverable payload-generation failures.
type Incidents interface {
	Catch(ctx context.Context, entity string, errs []models.ErrorDescriptor)
	ResendPending(ctx context.Context)
}
