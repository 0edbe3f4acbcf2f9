// Package catalog reads product catalog files for bulk import.
//
// A catalog file is YAML (JSON is accepted as a subset): either a list of
// products or a mapping with a "products" list.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dukerupert/potluck/internal/model"
)

// Money is a decimal dollar amount read verbatim from the file so that
// values like 3.49 never pass through float64.
type Money struct {
	decimal.Decimal
	Set bool
}

func (m *Money) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: price must be a scalar", n.Line)
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(n.Value), "$"))
	if err != nil {
		return fmt.Errorf("line %d: invalid price %q", n.Line, n.Value)
	}
	m.Decimal = d
	m.Set = true
	return nil
}

type Product struct {
	ProductID     string        `yaml:"product_id"`
	Name          string        `yaml:"name"`
	Size          string        `yaml:"size"`
	Aisle         string        `yaml:"aisle"`
	Category      string        `yaml:"category"`
	ImageURL      string        `yaml:"image_url"`
	Price         Money         `yaml:"price"`
	PriceCents    *int64        `yaml:"price_cents"`
	model.Dietary `yaml:",inline"`
}

// Cents converts a dollar amount to integer cents. Amounts with fractional
// cents or below zero are rejected.
func Cents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("price %s is negative", d)
	}
	c := d.Shift(2)
	if !c.Equal(c.Truncate(0)) {
		return 0, fmt.Errorf("price %s has fractional cents", d)
	}
	return c.IntPart(), nil
}

// Ingredient validates the product and converts it to a catalog entry.
// A missing category is derived from the name.
func (p Product) Ingredient(scrapedAt time.Time) (model.Ingredient, error) {
	ing := model.Ingredient{
		ProductID: strings.TrimSpace(p.ProductID),
		Name:      strings.TrimSpace(p.Name),
		Size:      strings.TrimSpace(p.Size),
		Aisle:     strings.TrimSpace(p.Aisle),
		Category:  strings.TrimSpace(p.Category),
		ImageURL:  strings.TrimSpace(p.ImageURL),
		Dietary:   p.Dietary,
		ScrapedAt: &scrapedAt,
	}
	if ing.ProductID == "" {
		return ing, errors.New("product_id is required")
	}
	if ing.Name == "" {
		return ing, fmt.Errorf("product %s: name is required", ing.ProductID)
	}
	switch {
	case p.PriceCents != nil:
		if *p.PriceCents < 0 {
			return ing, fmt.Errorf("product %s: price_cents must be >= 0", ing.ProductID)
		}
		ing.PriceCents = *p.PriceCents
	case p.Price.Set:
		cents, err := Cents(p.Price.Decimal)
		if err != nil {
			return ing, fmt.Errorf("product %s: %w", ing.ProductID, err)
		}
		ing.PriceCents = cents
	}
	if ing.Category == "" {
		ing.Category = Categorize(ing.Name)
	}
	return ing, nil
}

// Parse reads a catalog file and returns validated ingredients in file order.
func Parse(r io.Reader, scrapedAt time.Time) ([]model.Ingredient, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var products []Product
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&products); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
	case yaml.MappingNode:
		var wrapped struct {
			Products []Product `yaml:"products"`
		}
		if err := doc.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode products: %w", err)
		}
		products = wrapped.Products
	default:
		return nil, fmt.Errorf("catalog must be a list of products")
	}

	seen := make(map[string]bool, len(products))
	out := make([]model.Ingredient, 0, len(products))
	for i, p := range products {
		ing, err := p.Ingredient(scrapedAt)
		if err != nil {
			return nil, fmt.Errorf("product #%d: %w", i+1, err)
		}
		if seen[ing.ProductID] {
			return nil, fmt.Errorf("product #%d: duplicate product_id %q", i+1, ing.ProductID)
		}
		seen[ing.ProductID] = true
		out = append(out, ing)
	}
	return out, nil
}
