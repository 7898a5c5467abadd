// Package syncclient uploads statements to a running Pennywise API on behalf
// of a user, authenticating with the shared sync key.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"pennywise/internal/middleware"
)

// ImportSummary is the part of the import response a sync job reports on.
type ImportSummary struct {
	Format     string           `json:"format"`
	Imported   int              `json:"imported"`
	Duplicates int              `json:"duplicates"`
	Skipped    int              `json:"skipped"`
	NetAmount  decimal.Decimal  `json:"net_amount"`
	Strategy   string           `json:"balance_strategy"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client communicates with the sync routes of the API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a sync client. A nil httpClient uses http.DefaultClient.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// UploadStatement imports one statement file for userID. accountID may be
// empty to import without linking an account.
func (c *Client) UploadStatement(ctx context.Context, userID, accountID, filename string, data []byte) (*ImportSummary, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if accountID != "" {
		if err := w.WriteField("account_id", accountID); err != nil {
			return nil, fmt.Errorf("writing account field: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("writing file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/sync/imports", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set(middleware.SyncUserHeader, userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading statement: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var result struct {
		Import ImportSummary `json:"import"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding import response: %w", err)
	}
	return &result.Import, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
