package shopify

import (
	"context"
	"fmt"

	"shopify-catalog-mirror/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultTopics are the deliveries the mirror consumes.
var DefaultTopics = []string{
	"customers/create",
	"customers/update",
	"orders/create",
	"orders/updated",
	"products/create",
	"products/update",
}

// webhookService is the part of goshopify.WebhookService the registrar uses.
type webhookService interface {
	List(ctx context.Context, options interface{}) ([]goshopify.Webhook, error)
	Create(ctx context.Context, webhook goshopify.Webhook) (*goshopify.Webhook, error)
}

// WebhookRegistrar creates missing webhook subscriptions through the
// platform SDK.
type WebhookRegistrar struct {
	app        goshopify.App
	apiVersion string
	address    string
	topics     []string
	newService func(shopDomain, accessToken string) (webhookService, error)
	logger     zerolog.Logger
}

var _ ports.WebhookRegistrar = (*WebhookRegistrar)(nil)

// NewWebhookRegistrar creates a registrar that points deliveries at address
func NewWebhookRegistrar(apiKey, apiSecret, apiVersion, address string, logger zerolog.Logger) *WebhookRegistrar {
	r := &WebhookRegistrar{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		address:    address,
		topics:     DefaultTopics,
		logger:     logger,
	}
	r.newService = r.sdkService
	return r
}

func (r *WebhookRegistrar) sdkService(shopDomain, accessToken string) (webhookService, error) {
	var opts []goshopify.Option
	if r.apiVersion != "" {
		opts = append(opts, goshopify.WithVersion(r.apiVersion))
	}
	client, err := goshopify.NewClient(r.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client.Webhook, nil
}

// EnsureSubscriptions creates a subscription for every default topic that
// does not already deliver to the registrar's address.
func (r *WebhookRegistrar) EnsureSubscriptions(ctx context.Context, shopDomain, accessToken string) (int, error) {
	svc, err := r.newService(shopDomain, accessToken)
	if err != nil {
		return 0, err
	}

	existing, err := svc.List(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list webhooks: %w", err)
	}

	subscribed := make(map[string]bool, len(existing))
	for _, wh := range existing {
		if wh.Address == r.address {
			subscribed[wh.Topic] = true
		}
	}

	created := 0
	for _, topic := range r.topics {
		if subscribed[topic] {
			continue
		}
		_, err := svc.Create(ctx, goshopify.Webhook{
			Topic:   topic,
			Address: r.address,
			Format:  "json",
		})
		if err != nil {
			return created, fmt.Errorf("failed to create webhook %s: %w", topic, err)
		}
		created++
		r.logger.Info().
			Str("shop", shopDomain).
			Str("topic", topic).
			Msg("Created webhook subscription")
	}

	return created, nil
}
