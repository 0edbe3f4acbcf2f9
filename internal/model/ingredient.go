package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Dietary holds the fixed set of dietary flags carried by every catalog entry.
// Field order is the display order clients expect.
type Dietary struct {
	IsAlcohol   bool `json:"is_alcohol" yaml:"is_alcohol"`
	Gluten      bool `json:"gluten" yaml:"gluten"`
	Dairy       bool `json:"dairy" yaml:"dairy"`
	Egg         bool `json:"egg" yaml:"egg"`
	Peanut      bool `json:"peanut" yaml:"peanut"`
	Kosher      bool `json:"kosher" yaml:"kosher"`
	Vegan       bool `json:"vegan" yaml:"vegan"`
	Vegetarian  bool `json:"vegetarian" yaml:"vegetarian"`
	LactoseFree bool `json:"lactose_free" yaml:"lactose_free"`
	WheatFree   bool `json:"wheat_free" yaml:"wheat_free"`
	Pork        bool `json:"pork" yaml:"pork"`
	Shellfish   bool `json:"shellfish" yaml:"shellfish"`
}

// Ingredient is a catalog entry. Empty strings stand in for absent values.
type Ingredient struct {
	ID         int64      `json:"id"`
	ProductID  string     `json:"product_id"`
	Name       string     `json:"name"`
	Size       string     `json:"size"`
	Aisle      string     `json:"aisle"`
	Category   string     `json:"category"`
	ImageURL   string     `json:"image_url"`
	PriceCents int64      `json:"price_cents"`
	Dietary    Dietary    `json:"dietary"`
	ScrapedAt  *time.Time `json:"scraped_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Price is the derived decimal price in dollars. It is never persisted.
func (i Ingredient) Price() decimal.Decimal {
	return decimal.New(i.PriceCents, -2)
}

// ViewVariant selects which optional fields an IngredientView carries.
type ViewVariant int

const (
	// VariantFull adds category and decimal price.
	VariantFull ViewVariant = iota
	// VariantSummary is used inside submissions.
	VariantSummary
	// VariantGroceryList drops dietary flags as well.
	VariantGroceryList
)

// IngredientView is the single wire shape for an ingredient, whatever row it
// was read from.
type IngredientView struct {
	ID         int64       `json:"id"`
	ProductID  string      `json:"product_id"`
	Name       string      `json:"name"`
	Size       *string     `json:"size"`
	Aisle      *string     `json:"aisle"`
	ImageURL   *string     `json:"image_url"`
	PriceCents int64       `json:"price_cents"`
	Dietary    *Dietary    `json:"dietary,omitempty"`
	Category   *string     `json:"category,omitempty"`
	Price      json.Number `json:"price,omitempty"`
}

// View translates the ingredient into its wire shape for the given variant.
func (i Ingredient) View(variant ViewVariant) IngredientView {
	v := IngredientView{
		ID:         i.ID,
		ProductID:  i.ProductID,
		Name:       i.Name,
		Size:       nullable(i.Size),
		Aisle:      nullable(i.Aisle),
		ImageURL:   nullable(i.ImageURL),
		PriceCents: i.PriceCents,
	}
	if variant != VariantGroceryList {
		d := i.Dietary
		v.Dietary = &d
	}
	if variant == VariantFull {
		v.Category = nullable(i.Category)
		v.Price = json.Number(i.Price().StringFixed(2))
	}
	return v
}

// Ingredient converts a view back into a catalog entry. Fields the variant
// did not carry are left zero.
func (v IngredientView) Ingredient() Ingredient {
	i := Ingredient{
		ID:         v.ID,
		ProductID:  v.ProductID,
		Name:       v.Name,
		Size:       deref(v.Size),
		Aisle:      deref(v.Aisle),
		ImageURL:   deref(v.ImageURL),
		Category:   deref(v.Category),
		PriceCents: v.PriceCents,
	}
	if v.Dietary != nil {
		i.Dietary = *v.Dietary
	}
	return i
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
