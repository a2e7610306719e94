package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderCreatedWireFormat(t *testing.T) {
	ev := OrderCreated{
		OrderID: 42,
		Items: []OrderCreatedItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 9, Quantity: 1},
		},
	}

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"orderId":42,"items":[{"productId":1,"quantity":2},{"productId":9,"quantity":1}]}`, string(body))

	decoded, err := DecodeOrderCreated(body)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)
}

func TestStockUpdatedWireFormat(t *testing.T) {
	ev := StockUpdated{ProductID: 7, QuantityDelta: 3}

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"productId":7,"quantityDelta":3}`, string(body))

	decoded, err := DecodeStockUpdated(body)
	require.NoError(t, err)
	require.Equal(t, ev, decoded)
}

func TestDecodeOrderCreatedRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "hello"},
		{"missing order id", `{"items":[{"productId":1,"quantity":1}]}`},
		{"negative order id", `{"orderId":-1,"items":[{"productId":1,"quantity":1}]}`},
		{"no items", `{"orderId":1,"items":[]}`},
		{"items omitted", `{"orderId":1}`},
		{"zero quantity", `{"orderId":1,"items":[{"productId":1,"quantity":0}]}`},
		{"zero product id", `{"orderId":1,"items":[{"productId":0,"quantity":1}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeOrderCreated([]byte(tc.body))
			require.Error(t, err)
		})
	}
}

func TestDecodeStockUpdatedRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "{"},
		{"zero product id", `{"productId":0,"quantityDelta":1}`},
		{"zero delta", `{"productId":1,"quantityDelta":0}`},
		{"negative delta", `{"productId":1,"quantityDelta":-5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeStockUpdated([]byte(tc.body))
			require.Error(t, err)
		})
	}
}

func TestDecodeOrderCreatedIgnoresUnknownFields(t *testing.T) {
	// Producers may grow the payload; consumers stay tolerant.
	body := []byte(`{"orderId":5,"items":[{"productId":2,"quantity":4}],"customer":"ignored"}`)

	ev, err := DecodeOrderCreated(body)
	require.NoError(t, err)
	require.Equal(t, int64(5), ev.OrderID)
	require.Len(t, ev.Items, 1)
}
