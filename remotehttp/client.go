// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

// Package remotehttp implements the remote-store contract over an
// authenticated HTTP/JSON API: a base endpoint plus a bearer credential,
// which is how a hosted backend for the counting app is consumed.
package remotehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jasonhuangco/morning-lavender-inventory/inventory"
)

// TokenFunc supplies the bearer credential for each request.
type TokenFunc func(ctx context.Context) (string, error)

// StaticToken wraps a fixed credential (e.g. a service API key) as a TokenFunc.
func StaticToken(token string) TokenFunc {
	return func(context.Context) (string, error) { return token, nil }
}

// Client talks to the remote inventory API. Every network or auth failure
// surfaces as an error; the client never retries internally.
type Client struct {
	BaseURL string
	Token   TokenFunc
	HTTP    *http.Client
	logger  *slog.Logger
}

// NewClient creates an HTTP remote store. The underlying http.Client
// carries a bounded timeout so a hung call cannot stall a sync cycle
// forever.
func NewClient(baseURL string, token TokenFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	token, err := c.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func fetchList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) FetchLocations(ctx context.Context) ([]inventory.Location, error) {
	return fetchList[inventory.Location](ctx, c, "/inventory/locations")
}

func (c *Client) FetchCategories(ctx context.Context) ([]inventory.Category, error) {
	return fetchList[inventory.Category](ctx, c, "/inventory/categories")
}

func (c *Client) FetchSuppliers(ctx context.Context) ([]inventory.Supplier, error) {
	return fetchList[inventory.Supplier](ctx, c, "/inventory/suppliers")
}

func (c *Client) FetchProducts(ctx context.Context) ([]inventory.Product, error) {
	return fetchList[inventory.Product](ctx, c, "/inventory/products")
}

func (c *Client) FetchSessions(ctx context.Context) ([]inventory.InventorySession, error) {
	return fetchList[inventory.InventorySession](ctx, c, "/inventory/sessions")
}

func (c *Client) FetchOrderHistory(ctx context.Context) ([]inventory.OrderHistoryItem, error) {
	return fetchList[inventory.OrderHistoryItem](ctx, c, "/inventory/order-history")
}

func (c *Client) UpsertLocation(ctx context.Context, l inventory.Location) error {
	return c.do(ctx, http.MethodPut, "/inventory/locations/"+url.PathEscape(l.ID), l, nil)
}

func (c *Client) UpsertCategory(ctx context.Context, cat inventory.Category) error {
	return c.do(ctx, http.MethodPut, "/inventory/categories/"+url.PathEscape(cat.ID), cat, nil)
}

func (c *Client) UpsertSupplier(ctx context.Context, sp inventory.Supplier) error {
	return c.do(ctx, http.MethodPut, "/inventory/suppliers/"+url.PathEscape(sp.ID), sp, nil)
}

func (c *Client) UpsertProduct(ctx context.Context, p inventory.Product) error {
	return c.do(ctx, http.MethodPut, "/inventory/products/"+url.PathEscape(p.ID), p, nil)
}

func (c *Client) UpsertSession(ctx context.Context, s inventory.InventorySession) error {
	return c.do(ctx, http.MethodPut, "/inventory/sessions/"+url.PathEscape(s.ID), s, nil)
}

func (c *Client) InsertOrderHistory(ctx context.Context, items []inventory.OrderHistoryItem) error {
	return c.do(ctx, http.MethodPost, "/inventory/order-history", items, nil)
}

func (c *Client) DeleteLocation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inventory/locations/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inventory/categories/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteSupplier(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inventory/suppliers/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inventory/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inventory/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FetchSettings(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpsertSetting(ctx context.Context, key, value string) error {
	body := map[string]string{"key": key, "value": value}
	return c.do(ctx, http.MethodPut, "/settings/"+url.PathEscape(key), body, nil)
}
