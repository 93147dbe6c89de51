package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Bakkerij Jansen", "bakkerij jansen"},
		{"trims and collapses whitespace", "  Brood   &  Zo ", "brood & zo"},
		{"strips diacritics", "Café Zeezicht", "cafe zeezicht"},
		{"mixed", "  CAFÉ  Müller ", "cafe muller"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NameKey(tt.in))
		})
	}
}

func TestNameKeyEquivalence(t *testing.T) {
	assert.Equal(t, NameKey("Café  Zeezicht"), NameKey("cafe zeezicht"))
	assert.NotEqual(t, NameKey("Bakkerij Jansen"), NameKey("Bakkerij Janssen"))
}
