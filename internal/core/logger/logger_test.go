package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"tms-graphql-api/internal/core/config"
)

func TestNewFallsBackToInfo(t *testing.T) {
	l, cleanup := New(config.Log{Level: "nonsense"})
	defer cleanup()
	assert.True(t, l.Core().Enabled(zap.InfoLevel))
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
}

func TestGormTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	g := NewGorm(zap.New(core), "warn")
	fc := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), fc, nil)
	assert.Equal(t, 0, logs.Len())

	g.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Equal(t, 1, logs.FilterMessage("sql").Len())

	g.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len())

	g.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	assert.Equal(t, 1, logs.FilterMessage("slow sql").Len())

	silent := g.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())
}
