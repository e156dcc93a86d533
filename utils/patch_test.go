package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchUpdates(t *testing.T) {
	type dto struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Internal *string `json:"-"`
	}
	name := "Acme"
	internal := "x"
	got := PatchUpdates(&dto{Name: &name, Internal: &internal})
	assert.Equal(t, map[string]any{"name": "Acme"}, got)

	assert.Empty(t, PatchUpdates(&dto{}))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 50, ParseIntDefault("", 50))
	assert.Equal(t, 25, ParseIntDefault(" 25 ", 50))
	assert.Equal(t, 50, ParseIntDefault("-3", 50))
	assert.Equal(t, 50, ParseIntDefault("abc", 50))
}
