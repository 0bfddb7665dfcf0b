package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Eagles", "eagles"},
		{"spaces", "Riverside High School", "riverside-high-school"},
		{"punctuation", "St. Mary's FC", "st-mary-s-fc"},
		{"leading and trailing junk", "  --Tigers!  ", "tigers"},
		{"digits kept", "U14 Lions", "u14-lions"},
		{"collapsed separators", "A  &  B", "a-b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
