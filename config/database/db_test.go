package database

import (
	"testing"

	"guidebook/config"

	"github.com/stretchr/testify/assert"
)

func TestDSNEscapesCredentials(t *testing.T) {
	cfg := &config.Config{
		DBUser: "guide", DBPassword: "p@ss/word", DBHost: "db", DBPort: "5432",
		DBName: "guidebook", DBSSLMode: "disable",
	}

	assert.Equal(t, "postgres://guide:p%40ss%2Fword@db:5432/guidebook?sslmode=disable", DSN(cfg))
}
