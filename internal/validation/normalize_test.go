package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Ebook FITNESS", "ebook fitness"},
		{"strips punctuation", "¡Compra ya! Envío gratis.", "compra ya envío gratis"},
		{"collapses whitespace", "ebook   fitness\n\tcompleto", "ebook fitness completo"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestProductKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"keeps first five significant words",
			"Transforma tu cuerpo con nuestra línea ebook fitness profesional",
			"transforma cuerpo nuestra línea ebook",
		},
		{
			"discards short words before truncation",
			"el la los ebook de fitness",
			"ebook fitness",
		},
		{"empty text", "", "unknown"},
		{"only short words", "a la el de", "unknown"},
		{"punctuation stripped", "Ebook-Fitness: ¡completo!", "ebook fitness completo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProductKey(tt.input))
		})
	}
}

func TestProductKey_SameProductSameKey(t *testing.T) {
	a := ProductKey("EBOOK FITNESS completo para transformar tu vida")
	b := ProductKey("ebook fitness completo   para transformar... tu vida!!")
	assert.Equal(t, a, b)
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "9f86d081ab",
		ImageKey("https://scontent.cdn.com/v/t39/9f86d081ab_n.jpg"))
	// No content id in the path: whole URL is the key
	url := "https://cdn.example.com/creative.png"
	assert.Equal(t, url, ImageKey(url))
}
