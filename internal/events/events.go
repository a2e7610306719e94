// Package events holds the wire contracts shared by the order and inventory
// services. Queue names and payload field names are part of the interop
// contract and must match across producer and consumer.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	QueueOrderCreated = "order.created"
	QueueStockUpdated = "stock.updated"
)

// OrderCreated is published by the order service once an order has been
// persisted. Inventory consumes it and reduces stock per line item.
type OrderCreated struct {
	OrderID int64              `json:"orderId"`
	Items   []OrderCreatedItem `json:"items"`
}

type OrderCreatedItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// StockUpdated is published by the inventory service for every successful
// stock reduction. QuantityDelta is the amount removed from stock.
type StockUpdated struct {
	ProductID     int64 `json:"productId"`
	QuantityDelta int   `json:"quantityDelta"`
}

var errEmptyBody = errors.New("empty message body")

// DecodeOrderCreated parses and validates an OrderCreated payload. A payload
// that fails here will never succeed on redelivery.
func DecodeOrderCreated(body []byte) (OrderCreated, error) {
	if len(body) == 0 {
		return OrderCreated{}, errEmptyBody
	}

	var ev OrderCreated
	if err := json.Unmarshal(body, &ev); err != nil {
		return OrderCreated{}, fmt.Errorf("unmarshal OrderCreated: %w", err)
	}

	if ev.OrderID <= 0 {
		return OrderCreated{}, fmt.Errorf("invalid orderId %d", ev.OrderID)
	}
	if len(ev.Items) == 0 {
		return OrderCreated{}, errors.New("OrderCreated without items")
	}
	for _, it := range ev.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return OrderCreated{}, fmt.Errorf("invalid item (productId=%d quantity=%d)", it.ProductID, it.Quantity)
		}
	}

	return ev, nil
}

// DecodeStockUpdated parses and validates a StockUpdated payload.
func DecodeStockUpdated(body []byte) (StockUpdated, error) {
	if len(body) == 0 {
		return StockUpdated{}, errEmptyBody
	}

	var ev StockUpdated
	if err := json.Unmarshal(body, &ev); err != nil {
		return StockUpdated{}, fmt.Errorf("unmarshal StockUpdated: %w", err)
	}

	if ev.ProductID <= 0 {
		return StockUpdated{}, fmt.Errorf("invalid productId %d", ev.ProductID)
	}
	if ev.QuantityDelta <= 0 {
		return StockUpdated{}, fmt.Errorf("invalid quantityDelta %d", ev.QuantityDelta)
	}

	return ev, nil
}
