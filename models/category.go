package models

import (
	"fmt"
	"strings"
)

// Category is the product category inferred for a search.
type Category string

const (
	CategoryElectronics     Category = "ELECTRONICS"
	CategoryClothing        Category = "CLOTHING"
	CategoryBooks           Category = "BOOKS"
	CategoryHomeAndGarden   Category = "HOME_AND_GARDEN"
	CategorySports          Category = "SPORTS"
	CategoryHealthAndBeauty Category = "HEALTH_AND_BEAUTY"
	CategoryAutomotive      Category = "AUTOMOTIVE"
	CategoryFlights         Category = "FLIGHTS"
	CategoryHotels          Category = "HOTELS"
	CategoryOther           Category = "OTHER"
)

// AllCategories lists every category in declaration order.
var AllCategories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHomeAndGarden,
	CategorySports,
	CategoryHealthAndBeauty,
	CategoryAutomotive,
	CategoryFlights,
	CategoryHotels,
	CategoryOther,
}

var categoryDisplayNames = map[Category]string{
	CategoryElectronics:     "Eletrônicos",
	CategoryClothing:        "Roupas",
	CategoryBooks:           "Livros",
	CategoryHomeAndGarden:   "Casa e Jardim",
	CategorySports:          "Esportes",
	CategoryHealthAndBeauty: "Saúde e Beleza",
	CategoryAutomotive:      "Automotivo",
	CategoryFlights:         "Passagens Aéreas",
	CategoryHotels:          "Hotéis",
	CategoryOther:           "Outros",
}

// DisplayName returns the human readable label of the category.
func (c Category) DisplayName() string {
	if name, ok := categoryDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryDisplayNames[c]
	return ok
}

// ParseCategory accepts the enum name in any case, with '-' or '_' separators.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
