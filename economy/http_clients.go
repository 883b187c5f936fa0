package economy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const serviceTokenHeader = "X-Service-Token"

// serviceClient is the shared shape of the platform service clients: a base
// URL, a service token and a bounded-timeout HTTP client.
type serviceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func newServiceClient(baseURL, token string) serviceClient {
	return serviceClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *serviceClient) postJSON(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(serviceTokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", path, err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body))
}

// HTTPLedger talks to the wallet service.
type HTTPLedger struct {
	serviceClient
}

func NewHTTPLedger(baseURL, token string) *HTTPLedger {
	return &HTTPLedger{serviceClient: newServiceClient(baseURL, token)}
}

type transferRequest struct {
	UserID         int      `json:"user_id"`
	Amount         int64    `json:"amount"`
	Currency       Currency `json:"currency"`
	IdempotencyKey string   `json:"idempotency_key"`
}

func (l *HTTPLedger) Debit(ctx context.Context, userID int, amount int64, currency Currency, idempotencyKey string) error {
	return l.transfer(ctx, "/api/v1/wallet/debit", userID, amount, currency, idempotencyKey)
}

func (l *HTTPLedger) Credit(ctx context.Context, userID int, amount int64, currency Currency, idempotencyKey string) error {
	return l.transfer(ctx, "/api/v1/wallet/credit", userID, amount, currency, idempotencyKey)
}

func (l *HTTPLedger) transfer(ctx context.Context, path string, userID int, amount int64, currency Currency, idempotencyKey string) error {
	resp, err := l.postJSON(ctx, path, transferRequest{
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusPaymentRequired, http.StatusConflict:
		return ErrInsufficientFunds
	default:
		return readError(resp)
	}
}

// HTTPInventory talks to the item/crate service.
type HTTPInventory struct {
	serviceClient
}

func NewHTTPInventory(baseURL, token string) *HTTPInventory {
	return &HTTPInventory{serviceClient: newServiceClient(baseURL, token)}
}

type grantRequest struct {
	UserID int    `json:"user_id"`
	ItemID string `json:"item_id"`
	Qty    int    `json:"qty"`
}

func (i *HTTPInventory) GrantItem(ctx context.Context, userID int, itemID string, qty int) error {
	return i.grant(ctx, "/api/v1/inventory/items", userID, itemID, qty)
}

func (i *HTTPInventory) GrantCrateKey(ctx context.Context, userID int, crateID string, qty int) error {
	return i.grant(ctx, "/api/v1/inventory/crate-keys", userID, crateID, qty)
}

func (i *HTTPInventory) grant(ctx context.Context, path string, userID int, itemID string, qty int) error {
	resp, err := i.postJSON(ctx, path, grantRequest{UserID: userID, ItemID: itemID, Qty: qty})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return readError(resp)
	}
	return nil
}

// HTTPBadgeService talks to the badge service.
type HTTPBadgeService struct {
	serviceClient
}

func NewHTTPBadgeService(baseURL, token string) *HTTPBadgeService {
	return &HTTPBadgeService{serviceClient: newServiceClient(baseURL, token)}
}

func (b *HTTPBadgeService) GrantBadge(ctx context.Context, userID int, badgeID string) error {
	resp, err := b.postJSON(ctx, "/api/v1/badges/grant", map[string]interface{}{
		"user_id":  userID,
		"badge_id": badgeID,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return readError(resp)
	}
	return nil
}
