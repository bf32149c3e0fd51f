package catalog

import (
	"errors"

	"github.com/billbatista/acasinha-diary/nutrition"
)

type Source string

const (
	SourceOpenFoodFacts Source = "off"
	SourceCustom        Source = "custom"
	SourcePhoto         Source = "photo"
)

// FoodProduct is a catalog record. Entries reference it by ID only.
type FoodProduct struct {
	ID          string               `json:"id"`
	Source      Source               `json:"source"`
	Name        string               `json:"name"`
	Brand       string               `json:"brand,omitempty"`
	ImageURL    string               `json:"imageUrl,omitempty"`
	ServingSize nutrition.Serving    `json:"servingSize"`
	PerServing  nutrition.Nutrients  `json:"perServing"`
	Per100g     *nutrition.Nutrients `json:"per100g,omitempty"`
}

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyID         = errors.New("product id can't be empty")
	ErrEmptyName       = errors.New("product name can't be empty")
)

func (p FoodProduct) Validate() error {
	if p.ID == "" {
		return ErrEmptyID
	}
	if p.Name == "" {
		return ErrEmptyName
	}
	return p.ServingSize.Validate()
}

// NewCustomProduct builds a custom product from per-100g values, deriving the
// per-serving values when the serving has a gram equivalent.
func NewCustomProduct(id, name string, serving nutrition.Serving, per100g nutrition.Nutrients) (FoodProduct, error) {
	p := FoodProduct{
		ID:          id,
		Source:      SourceCustom,
		Name:        name,
		ServingSize: serving,
		Per100g:     &per100g,
	}
	if err := p.Validate(); err != nil {
		return FoodProduct{}, err
	}
	perServing, ok := nutrition.Per100gToPerServing(&per100g, serving)
	if !ok {
		perServing = per100g
	}
	p.PerServing = nutrition.Fill(perServing)
	return p, nil
}

func (p FoodProduct) clone() FoodProduct {
	p.PerServing = p.PerServing.Clone()
	if p.Per100g != nil {
		n := p.Per100g.Clone()
		p.Per100g = &n
	}
	return p
}
