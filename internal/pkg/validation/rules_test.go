package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("institut-lumiere"))
	assert.True(t, IsValidSlug("ecole42"))
	assert.False(t, IsValidSlug("Institut"))
	assert.False(t, IsValidSlug("double--dash"))
	assert.False(t, IsValidSlug("-leading"))
	assert.False(t, IsValidSlug(""))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "ecole-des-arts-2025", Slugify("  Ecole des Arts 2025! "))
	assert.Equal(t, "a-b", Slugify("a -- b"))
}

func TestRegisterCustomRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomRules(v))

	type payload struct {
		Slug string `validate:"required,slug"`
	}
	assert.NoError(t, v.Struct(payload{Slug: "ok-slug"}))
	assert.Error(t, v.Struct(payload{Slug: "Not OK"}))
}
