// Package api holds the outbound HTTP clients for the treasury and the
// procurement record service. "Absent" responses (not found, empty
// body) come back as (nil, nil); transport failures as errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mconnect-bus/models"
)

const defaultTimeout = 10 * time.Second

// TreasuryClient talks to the treasury registration/status service.
type TreasuryClient struct {
	baseURL string
	client  *http.Client
}

func NewTreasuryClient(baseURL string) *TreasuryClient {
	return &TreasuryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// RegisterContract submits a registration payload. The treasury echoes
// the document id it registered; a mismatch is for the caller to judge.
func (t *TreasuryClient) RegisterContract(ctx context.Context, payload *models.RegisterPayload) (*models.RegisterResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode register payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/v1/contract/register", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contract register call: %w", err)
	}
	defer resp.Body.Close()

	var ack models.RegisterResponse
	ok, err := decodeMaybe(resp, &ack)
	if err != nil || !ok {
		return nil, err
	}

	return &ack, nil
}

// ContractsQueue fetches one status code's contract queue.
func (t *TreasuryClient) ContractsQueue(ctx context.Context, statusCode string) (*models.QueueResponse, error) {
	url := fmt.Sprintf("%s/api/v1/contracts/queue?status=%s", t.baseURL, statusCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contracts queue call for status %s: %w", statusCode, err)
	}
	defer resp.Body.Close()

	var queue models.QueueResponse
	ok, err := decodeMaybe(resp, &queue)
	if err != nil || !ok {
		return nil, err
	}

	return &queue, nil
}

// CommitContract confirms a status event back to the treasury. A false
// ack without error means "not yet confirmable"; callers leave the row
// pending for the next cycle.
func (t *TreasuryClient) CommitContract(ctx context.Context, idDoc string) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/contract/commit?id_dok=%s", t.baseURL, idDoc)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("contract commit call: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// decodeMaybe decodes a 2xx JSON body into dst; ok is false for absent
// responses (404 or empty body). Non-2xx other than 404 is an error.
func decodeMaybe(resp *http.Response, dst interface{}) (bool, error) {
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return true, nil
}
