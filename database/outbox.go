package database

import (
	"time"

	"gorm.io/gorm"

	"mconnect-bus/models"
)

// Store exposes the outbox operations the controllers run. Every stage
// mark is a conditional UPDATE guarded by "<stage timestamp> IS NULL"
// and returns the affected-row count, so concurrent reconciliation
// passes and process restarts stay idempotent without in-process locks.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) exists(model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	err := s.db.Model(model).Where(query, args...).Limit(1).Count(&n).Error

	return n > 0, err
}

// ---- requests

func (s *Store) RequestExists(cmdID string) (bool, error) {
	return s.exists(&models.Request{}, "cmd_id = ?", cmdID)
}

func (s *Store) InsertRequest(row *models.Request) error {
	return s.db.Create(row).Error
}

// ---- treasury_requests

func (s *Store) TreasuryRequestExists(idDoc string) (bool, error) {
	return s.exists(&models.TreasuryRequest{}, "id_doc = ?", idDoc)
}

func (s *Store) InsertTreasuryRequest(row *models.TreasuryRequest) error {
	return s.db.Create(row).Error
}

// NotRegistered returns every payload the treasury never accepted.
func (s *Store) NotRegistered() ([]models.TreasuryRequest, error) {
	var rows []models.TreasuryRequest
	err := s.db.Where("ts IS NULL").Find(&rows).Error

	return rows, err
}

func (s *Store) MarkRegistered(idDoc string, at time.Time) (int64, error) {
	res := s.db.Model(&models.TreasuryRequest{}).
		Where("id_doc = ? AND ts IS NULL", idDoc).
		Update("ts", at)

	return res.RowsAffected, res.Error
}

// ---- responses

func (s *Store) ResponseExists(idDoc string) (bool, error) {
	return s.exists(&models.Response{}, "id_doc = ?", idDoc)
}

func (s *Store) InsertResponse(row *models.Response) error {
	return s.db.Create(row).Error
}

// NotSent returns every outbound message never confirmed published.
func (s *Store) NotSent() ([]models.Response, error) {
	var rows []models.Response
	err := s.db.Where("ts IS NULL").Find(&rows).Error

	return rows, err
}

func (s *Store) MarkSent(idDoc string, at time.Time) (int64, error) {
	res := s.db.Model(&models.Response{}).
		Where("id_doc = ? AND ts IS NULL", idDoc).
		Update("ts", at)

	return res.RowsAffected, res.Error
}

// ---- treasury_responses

// ReplaceTreasuryResponse deletes any uncommitted status event for the
// same id_doc before inserting the new one: last status wins, and at
// most one uncommitted row per contract ever exists.
func (s *Store) ReplaceTreasuryResponse(row *models.TreasuryResponse) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id_doc = ? AND ts_commit IS NULL", row.IDDoc).
			Delete(&models.TreasuryResponse{}).Error; err != nil {
			return err
		}

		return tx.Create(row).Error
	})
}

// NotCommitted returns every status event not yet acknowledged back to
// the treasury.
func (s *Store) NotCommitted() ([]models.TreasuryResponse, error) {
	var rows []models.TreasuryResponse
	err := s.db.Where("ts_commit IS NULL").Find(&rows).Error

	return rows, err
}

func (s *Store) MarkCommitted(idDoc string, at time.Time) (int64, error) {
	res := s.db.Model(&models.TreasuryResponse{}).
		Where("id_doc = ? AND ts_commit IS NULL", idDoc).
		Update("ts_commit", at)

	return res.RowsAffected, res.Error
}

// ---- errors

func (s *Store) ErrorExists(hash string) (bool, error) {
	return s.exists(&models.ErrorRecord{}, "hash = ?", hash)
}

func (s *Store) InsertError(row *models.ErrorRecord) error {
	return s.db.Create(row).Error
}

// NotSentErrors returns every incident never delivered to the
// incidents topic.
func (s *Store) NotSentErrors() ([]models.ErrorRecord, error) {
	var rows []models.ErrorRecord
	err := s.db.Where("ts_send IS NULL").Find(&rows).Error

	return rows, err
}

func (s *Store) MarkErrorSent(id string, at time.Time) (int64, error) {
	res := s.db.Model(&models.ErrorRecord{}).
		Where("id = ? AND ts_send IS NULL", id).
		Update("ts_send", at)

	return res.RowsAffected, res.Error
}
