package graphql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tms-graphql-api/internal/service"
)

func TestParallelismCoversFullPage(t *testing.T) {
	assert.Equal(t, DefaultMaxParallelism, parallelism(0))
	assert.GreaterOrEqual(t, DefaultMaxParallelism, 3*service.MaxLimit)
	assert.Equal(t, 3*service.MaxLimit, parallelism(100))
	assert.Equal(t, 1000, parallelism(1000))
}
