package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBotDetector_DetectBotWall(t *testing.T) {
	d := NewBotDetector()

	tests := []struct {
		name    string
		content string
		title   string
		blocked bool
	}{
		{"captcha", "Digite os caracteres que você vê abaixo", "Amazon.com.br", true},
		{"challenge", "Checking your browser before accessing", "Just a moment...", true},
		{"normal results", "Console PlayStation 5 Slim R$ 3.799,00 Frete grátis", "Resultados", false},
		{"marker on a long page", "access denied " + strings.Repeat("produto ", 400), "Busca", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocked, _, score := d.DetectBotWall(tt.content, tt.title)
			assert.Equal(t, tt.blocked, blocked)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}
