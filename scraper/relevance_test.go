package scraper

import (
	"testing"

	"pricehound/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRelevanceFilter_Evaluate(t *testing.T) {
	f := NewRelevanceFilter()

	tests := []struct {
		name     string
		cand     string
		searched string
		price    string
		category models.Category
		accepted bool
		reason   models.RejectionReason
	}{
		{
			name:     "smartphone accessory",
			cand:     "Capa para iPhone 15",
			searched: "iPhone 15",
			price:    "45.00",
			category: models.CategoryElectronics,
			reason:   models.RejectAccessory,
		},
		{
			name:     "smartphone accepted",
			cand:     "Apple iPhone 15 128GB Preto",
			searched: "iPhone 15",
			price:    "4599.00",
			category: models.CategoryElectronics,
			accepted: true,
		},
		{
			name:     "console below price floor",
			cand:     "Console PlayStation 5 Slim",
			searched: "PlayStation 5",
			price:    "1500.00",
			category: models.CategoryElectronics,
			reason:   models.RejectPriceOutOfRange,
		},
		{
			name:     "console accepted",
			cand:     "Console PlayStation 5 Slim 1TB",
			searched: "PlayStation 5",
			price:    "3799.00",
			category: models.CategoryElectronics,
			accepted: true,
		},
		{
			name:     "console controller",
			cand:     "Controle DualSense PlayStation 5 Branco",
			searched: "PlayStation 5",
			price:    "2499.00",
			category: models.CategoryElectronics,
			reason:   models.RejectAccessory,
		},
		{
			name:     "console keyword missing",
			cand:     "Headset Pulse 3D Sony Branco",
			searched: "Xbox Series X",
			price:    "2500.00",
			category: models.CategoryElectronics,
			reason:   models.RejectMissingKeyword,
		},
		{
			name:     "name too short",
			cand:     "PS5",
			searched: "PlayStation 5",
			price:    "3500.00",
			category: models.CategoryElectronics,
			reason:   models.RejectNameTooShort,
		},
		{
			name:     "boilerplate",
			cand:     "Deixe uma avaliação",
			searched: "Cafeteira",
			price:    "300.00",
			category: models.CategoryHomeAndGarden,
			reason:   models.RejectBoilerplateName,
		},
		{
			name:     "low overlap",
			cand:     "Liquidificador Turbo 1200W",
			searched: "Cafeteira Expresso Oster",
			price:    "300.00",
			category: models.CategoryHomeAndGarden,
			reason:   models.RejectLowOverlap,
		},
		{
			name:     "global floor",
			cand:     "Caneta Bic Cristal Azul",
			searched: "Caneta Bic",
			price:    "2.50",
			category: models.CategoryOther,
			reason:   models.RejectPriceFloor,
		},
		{
			name:     "footwear above range",
			cand:     "Tênis Nike Air Max Edição Ouro",
			searched: "Tênis Nike Air Max",
			price:    "9000.00",
			category: models.CategorySports,
			reason:   models.RejectPriceOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Evaluate(tt.cand, tt.searched, decimal.RequireFromString(tt.price), tt.category)
			assert.Equal(t, tt.accepted, got.Accepted)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.category, got.Category)
		})
	}
}

func TestOverlapRatio(t *testing.T) {
	tests := []struct {
		name     string
		cand     string
		searched string
		want     float64
	}{
		{"all tokens", "Apple iPhone 15 Pro", "iphone pro", 1},
		{"half", "Samsung Galaxy S24", "galaxy note", 0.5},
		{"short tokens ignored", "Apple iPhone 15", "iphone 15", 1},
		{"stop words ignored", "Fone Bluetooth JBL", "fone para jbl", 1},
		{"no significant tokens", "Qualquer coisa", "de 15", 0},
		{"case insensitive", "NOTEBOOK DELL", "Notebook Dell", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverlapRatio(tt.cand, tt.searched), 1e-9)
		})
	}
}
