package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Red Shoes", "red-shoes"},
		{"  Red   Shoes  ", "red-shoes"},
		{"Café & Co.", "caf-co"},
		{"UPPER", "upper"},
		{"already-a-slug", "already-a-slug"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	assert.Equal(t, Slugify("Red Shoes"), Slugify("Red Shoes"))
}
