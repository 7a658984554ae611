package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopify-catalog-mirror/internal/domain"

	"github.com/rs/zerolog"
)

// ErrMalformedPayload is returned for a webhook body that is not a JSON object.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// IngestionAdapter turns raw webhook bodies into reconciled records.
type IngestionAdapter struct {
	reconciler *Reconciler
	logger     zerolog.Logger
}

// NewIngestionAdapter creates a new webhook ingestion adapter
func NewIngestionAdapter(reconciler *Reconciler, logger zerolog.Logger) *IngestionAdapter {
	return &IngestionAdapter{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (a *IngestionAdapter) OnCustomerEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error) {
	var p domain.CustomerPayload
	if err := decodeRecord(raw, domain.KindCustomer, &p); err != nil {
		return nil, err
	}
	created, err := a.reconciler.UpsertCustomer(ctx, tenant.ID, p)
	if err != nil {
		return nil, err
	}
	return a.ingested(tenant, domain.KindCustomer, int64(p.ID), created), nil
}

func (a *IngestionAdapter) OnOrderEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error) {
	var p domain.OrderPayload
	if err := decodeRecord(raw, domain.KindOrder, &p); err != nil {
		return nil, err
	}
	created, err := a.reconciler.UpsertOrder(ctx, tenant.ID, p)
	if err != nil {
		return nil, err
	}
	return a.ingested(tenant, domain.KindOrder, int64(p.ID), created), nil
}

func (a *IngestionAdapter) OnProductEvent(ctx context.Context, tenant *domain.Tenant, raw []byte) (*domain.IngestResult, error) {
	var p domain.ProductPayload
	if err := decodeRecord(raw, domain.KindProduct, &p); err != nil {
		return nil, err
	}
	created, err := a.reconciler.UpsertProduct(ctx, tenant.ID, p)
	if err != nil {
		return nil, err
	}
	return a.ingested(tenant, domain.KindProduct, int64(p.ID), created), nil
}

func (a *IngestionAdapter) ingested(tenant *domain.Tenant, kind domain.ResourceKind, shopID int64, created bool) *domain.IngestResult {
	a.logger.Debug().
		Str("tenantId", tenant.ID.String()).
		Str("kind", string(kind)).
		Int64("shopId", shopID).
		Bool("created", created).
		Msg("Webhook record reconciled")
	return &domain.IngestResult{Kind: kind, ShopID: shopID, Created: created}
}

// decodeRecord unwraps a body of the form {"customer": {...}} when present,
// else treats the whole object as the record.
func decodeRecord(raw []byte, kind domain.ResourceKind, out any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}

	body := raw
	if inner, ok := fields[kind.Singular()]; ok && isObject(inner) {
		body = inner
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
