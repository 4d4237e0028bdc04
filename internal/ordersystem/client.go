// Package ordersystem talks to the order-management platform's admin API:
// tag queries, order creation for seeding, and the delete/archive path.
package ordersystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/cleanup"
	"github.com/cozey-tech/cozey-uat-seeder-sub001/internal/models"
)

// BatchTagPrefix prefixes the canonical tag for a seeding batch.
const BatchTagPrefix = "uat-batch-"

// CreateOrderRequest registers one synthetic order in the order system.
type CreateOrderRequest struct {
	OrderID     string        `json:"order_id"`
	Region      models.Region `json:"region"`
	CustomerRef string        `json:"customer_ref"`
	Tag         string        `json:"tag"`
}

// Client is the HTTP client for the order system admin API. Requests are
// authenticated with a short-lived HS256 service token.
type Client struct {
	baseURL    string
	jwtSecret  string
	httpClient *http.Client
}

// NewClient builds a client for the given base URL. The secret signs the
// service JWTs the admin API expects.
func NewClient(baseURL, jwtSecret string) *Client {
	return &Client{
		baseURL:   baseURL,
		jwtSecret: jwtSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// TagForBatch maps a batch identifier to its canonical tag string.
func (c *Client) TagForBatch(batchID string) string {
	return BatchTagPrefix + batchID
}

// QueryOrdersByTag returns all orders carrying the tag.
func (c *Client) QueryOrdersByTag(ctx context.Context, tag string) ([]cleanup.OrderRef, error) {
	endpoint := fmt.Sprintf("%s/api/admin/orders?tag=%s", c.baseURL, url.QueryEscape(tag))
	var payload struct {
		Orders []cleanup.OrderRef `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to query orders by tag %q: %w", tag, err)
	}
	return payload.Orders, nil
}

// DeleteOrders deletes or archives each order. Per-order failures are
// carried in the outcomes so one bad order does not hide the rest.
func (c *Client) DeleteOrders(ctx context.Context, orderIDs []string) ([]cleanup.DeleteOutcome, error) {
	outcomes := make([]cleanup.DeleteOutcome, 0, len(orderIDs))
	for _, id := range orderIDs {
		endpoint := fmt.Sprintf("%s/api/admin/orders/%s", c.baseURL, url.PathEscape(id))
		var payload struct {
			OrderID string `json:"order_id"`
			Method  string `json:"method"`
		}
		err := c.do(ctx, http.MethodDelete, endpoint, nil, &payload)
		outcome := cleanup.DeleteOutcome{OrderID: id, Err: err}
		if err == nil {
			outcome.Method = cleanup.DeleteMethod(payload.Method)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// CreateOrder registers a synthetic order under its batch tag. Used by
// the seeding path.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) error {
	endpoint := fmt.Sprintf("%s/api/admin/orders", c.baseURL)
	if err := c.do(ctx, http.MethodPost, endpoint, req, nil); err != nil {
		return fmt.Errorf("failed to create order %s: %w", req.OrderID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.serviceToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("order system returned status %d: %s", resp.StatusCode, string(b))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// serviceToken signs a short-lived HS256 token with the admin role the
// order system's auth middleware checks for.
func (c *Client) serviceToken() (string, error) {
	claims := jwt.MapClaims{
		"user_id": "uat-seeder",
		"email":   "uat-seeder@internal",
		"role":    "admin",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(5 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(c.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}
