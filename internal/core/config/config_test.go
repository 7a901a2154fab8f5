package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	c := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 4000, c.App.HTTP.Port)
	assert.Equal(t, 7*24*time.Hour, c.JWT.TTL())
	assert.Equal(t, 1000, c.GraphQL.MaxComplexity)
	assert.Equal(t, 20, c.GraphQL.ListMultiplier)
	assert.Equal(t, "postgres", c.DB.Driver)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
app:
  http:
    port: 9090
db:
  driver: memory
graphql:
  maxComplexity: 500
`), 0o600))
	t.Setenv("APP_JWT_SECRET", "from-env")

	c := Load(p)
	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, "memory", c.DB.Driver)
	assert.Equal(t, 500, c.GraphQL.MaxComplexity)
	assert.Equal(t, "from-env", c.JWT.Secret)
}
