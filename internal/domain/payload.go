package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString decodes a JSON string, number or bool into its text form.
// null and any other shape decode to the empty string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = FlexString(v)
	case '{', '[':
		*s = ""
	default:
		*s = FlexString(data)
	}
	return nil
}

// FlexID decodes a numeric id sent either as a JSON number or a string.
// Anything unparsable decodes to zero.
type FlexID int64

func (id *FlexID) UnmarshalJSON(data []byte) error {
	var raw FlexString
	_ = raw.UnmarshalJSON(data)
	text := strings.TrimSpace(string(raw))
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		*id = FlexID(n)
		return nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		*id = FlexID(int64(f))
		return nil
	}
	*id = 0
	return nil
}

// CustomerPayload is the normalized customer shape shared by bulk sync and webhooks.
type CustomerPayload struct {
	ID         FlexID     `json:"id"`
	Email      FlexString `json:"email"`
	FirstName  FlexString `json:"first_name"`
	LastName   FlexString `json:"last_name"`
	TotalSpent FlexString `json:"total_spent"`
	CreatedAt  FlexString `json:"created_at"`
	UpdatedAt  FlexString `json:"updated_at"`
}

// OrderPayload is the normalized order shape. Name carries the
// human-readable order number (e.g. "#1001").
type OrderPayload struct {
	ID         FlexID     `json:"id"`
	Name       FlexString `json:"name"`
	TotalPrice FlexString `json:"total_price"`
	Currency   FlexString `json:"currency"`
	CreatedAt  FlexString `json:"created_at"`
	UpdatedAt  FlexString `json:"updated_at"`
}

// VariantPayload carries the only variant field the mirror keeps.
type VariantPayload struct {
	Price FlexString `json:"price"`
}

// VariantList tolerates a variants field that is not an array, and
// elements that are not objects.
type VariantList []VariantPayload

func (l *VariantList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(VariantList, 0, len(raw))
	for _, item := range raw {
		var v VariantPayload
		_ = json.Unmarshal(item, &v)
		out = append(out, v)
	}
	*l = out
	return nil
}

// ProductPayload is the normalized product shape.
type ProductPayload struct {
	ID        FlexID      `json:"id"`
	Title     FlexString  `json:"title"`
	Variants  VariantList `json:"variants"`
	CreatedAt FlexString  `json:"created_at"`
	UpdatedAt FlexString  `json:"updated_at"`
}

// CustomersPage is the body of customers.json.
type CustomersPage struct {
	Customers []CustomerPayload `json:"customers"`
}

// OrdersPage is the body of orders.json.
type OrdersPage struct {
	Orders []OrderPayload `json:"orders"`
}

// ProductsPage is the body of products.json.
type ProductsPage struct {
	Products []ProductPayload `json:"products"`
}
