// Package stockclient is the order service's synchronous HTTP client for the
// inventory service: current price and stock reads used by the order saga.
package stockclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// TokenSource mints the bearer token attached to every upstream call.
type TokenSource interface {
	Token() (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *log.Logger
}

func New(baseURL string, httpClient *http.Client, tokens TokenSource, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		tokens:  tokens,
		logger:  logger,
	}
}

// Product fetches a product by id. A 404 maps to ErrNotFound.
func (c *Client) Product(ctx context.Context, productID int64) (Product, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Product{}, fmt.Errorf("build request: %w", err)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return Product{}, fmt.Errorf("mint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		c.logger.Printf("product %d not found in inventory", productID)
		return Product{}, ErrNotFound
	default:
		return Product{}, fmt.Errorf("get product %d: unexpected status %d", productID, resp.StatusCode)
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, fmt.Errorf("decode product %d: %w", productID, err)
	}

	return p, nil
}

// VerifyStock checks that the product has at least quantity units on hand.
func (c *Client) VerifyStock(ctx context.Context, productID int64, quantity int) error {
	p, err := c.Product(ctx, productID)
	if err != nil {
		return err
	}

	if p.Stock < quantity {
		c.logger.Printf("insufficient stock for product %d: have %d, want %d", productID, p.Stock, quantity)
		return fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, productID, p.Stock, quantity)
	}

	return nil
}
