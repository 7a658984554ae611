// Package fixtures serves canned platform collections for demo and test
// tenants so their syncs never reach the live API.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"shopify-catalog-mirror/internal/domain"
	"shopify-catalog-mirror/internal/ports"

	"github.com/rs/zerolog"
)

//go:embed mock-tenants.json
var defaultDataset []byte

const (
	homeDecorKey   = "home-decor"
	techGadgetsKey = "tech-gadgets"
)

type datasetFile struct {
	Tenants []*dataset `json:"tenants"`
}

type dataset struct {
	ShopDomain string                `json:"shopDomain"`
	Aliases    []string              `json:"aliases"`
	Customers  *domain.CustomersPage `json:"customers"`
	Orders     *domain.OrdersPage    `json:"orders"`
	Products   *domain.ProductsPage  `json:"products"`
}

// Provider resolves a shop domain to a canned dataset. The lookup table is
// built once and never mutated, so concurrent lookups need no locking.
type Provider struct {
	datasets map[string]*dataset
}

var _ ports.FixtureProvider = (*Provider)(nil)

// Parse builds a provider from a mock-tenants document.
func Parse(data []byte) (*Provider, error) {
	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixture dataset: %w", err)
	}

	datasets := make(map[string]*dataset)
	for _, tenant := range file.Tenants {
		if tenant == nil {
			continue
		}
		if key := domain.NormalizeShopDomain(tenant.ShopDomain); key != "" {
			datasets[key] = tenant
		}
		for _, alias := range tenant.Aliases {
			if key := domain.NormalizeShopDomain(alias); key != "" {
				datasets[key] = tenant
			}
		}
	}
	return &Provider{datasets: datasets}, nil
}

// Default returns the provider backed by the embedded dataset.
func Default() *Provider {
	p, err := Parse(defaultDataset)
	if err != nil {
		panic(err)
	}
	return p
}

// Empty returns a provider that never matches.
func Empty() *Provider {
	return &Provider{datasets: map[string]*dataset{}}
}

// Load reads path, or the embedded dataset when path is empty. A missing
// file is not an error: the result simply matches no tenant.
func Load(path string, logger zerolog.Logger) (*Provider, error) {
	if path == "" {
		p := Default()
		logger.Info().Int("datasets", p.Len()).Msg("Loaded embedded mock Shopify datasets")
		return p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info().Str("path", path).Msg("No mock Shopify data found")
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture dataset: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", path).Int("datasets", p.Len()).Msg("Loaded mock Shopify datasets")
	return p, nil
}

// ShopDomains lists the primary shop domain of every dataset, sorted.
func (p *Provider) ShopDomains() []string {
	seen := make(map[string]struct{})
	for _, d := range p.datasets {
		if key := domain.NormalizeShopDomain(d.ShopDomain); key != "" {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// Len is the number of registered keys, aliases included.
func (p *Provider) Len() int { return len(p.datasets) }

// CustomersFor, OrdersFor and ProductsFor report false when the shop has no
// dataset or its dataset omits that collection, so the caller goes live.
func (p *Provider) CustomersFor(shopDomain string) ([]domain.CustomerPayload, bool) {
	d := p.find(shopDomain)
	if d == nil || d.Customers == nil {
		return nil, false
	}
	return d.Customers.Customers, true
}

func (p *Provider) OrdersFor(shopDomain string) ([]domain.OrderPayload, bool) {
	d := p.find(shopDomain)
	if d == nil || d.Orders == nil {
		return nil, false
	}
	return d.Orders.Orders, true
}

func (p *Provider) ProductsFor(shopDomain string) ([]domain.ProductPayload, bool) {
	d := p.find(shopDomain)
	if d == nil || d.Products == nil {
		return nil, false
	}
	return d.Products.Products, true
}

// find tries an exact match first, then the keyword fallback.
func (p *Provider) find(shopDomain string) *dataset {
	key := domain.NormalizeShopDomain(shopDomain)
	if key == "" || len(p.datasets) == 0 {
		return nil
	}
	if d, ok := p.datasets[key]; ok {
		return d
	}
	switch {
	case strings.Contains(key, "decor") || strings.Contains(key, "home"):
		return p.datasets[homeDecorKey]
	case strings.Contains(key, "tech") || strings.Contains(key, "gadget"):
		return p.datasets[techGadgetsKey]
	}
	return nil
}
