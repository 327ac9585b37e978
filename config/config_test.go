package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("IMAGE_BACKEND_URL", "http://images.local/")
	t.Setenv("IMAGE_URL", "https://media.example.org/uploads/")
	t.Setenv("DISCOURSE_URL", " http://forum.internal/ ")
	t.Setenv("DISCOURSE_PUBLIC_URL", "")
	t.Setenv("DISCOURSE_CATEGORY", "42")

	cfg, _ := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://images.local", cfg.ImageBackendURL)
	assert.Equal(t, "https://media.example.org/uploads/", cfg.ImageURL)
	assert.Equal(t, "http://forum.internal", cfg.DiscourseURL)
	assert.Equal(t, "http://forum.internal", cfg.DiscoursePublicURL)
	assert.Equal(t, "42", cfg.DiscourseCategory)
	assert.Equal(t, "moderator", cfg.ModeratorRole)
}
