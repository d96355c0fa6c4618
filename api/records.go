package api

import (
	"context"
	"fmt"
	"net/http"

	"mconnect-bus/models"
)

// RecordsClient fetches released procurement records.
type RecordsClient struct {
	baseURL string
	client  *http.Client
}

func NewRecordsClient(baseURL string) *RecordsClient {
	return &RecordsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// EntityRecord fetches one entity's record by cpid/ocid; (nil, nil)
// when the record does not exist.
func (r *RecordsClient) EntityRecord(ctx context.Context, cpid, ocid string) (*models.Record, error) {
	url := fmt.Sprintf("%s/tenders/%s/%s", r.baseURL, cpid, ocid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entity record call for %s: %w", ocid, err)
	}
	defer resp.Body.Close()

	var record models.Record
	ok, err := decodeMaybe(resp, &record)
	if err != nil || !ok {
		return nil, err
	}

	return &record, nil
}
