package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tms-graphql-api/internal/core/logger"
	"tms-graphql-api/internal/domain"
)

type Opts struct {
	Driver             string
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
}

var ErrUnsupportedDriver = errors.New("unsupported db driver")

func NewGorm(o Opts, l *zap.Logger) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn := o.DSN
		if !strings.Contains(dsn, "parseTime=") {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "parseTime=true&charset=utf8mb4"
		}
		dial = mysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(o.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, o.Driver)
	}
	l.Info("opening database", zap.String("driver", o.Driver), zap.String("dsn", MaskDSN(o.DSN)))

	db, err := gorm.Open(dial, &gorm.Config{
		Logger:         logger.NewGorm(l, o.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	return db, nil
}

// Migrate 建表；事件表的外键随 Shipment 一起创建
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Shipment{}, &domain.TrackingEvent{})
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MaskDSN hides the password part of user:pass@host style DSNs and password=... pairs.
func MaskDSN(dsn string) string {
	masked := dsn
	if at := strings.Index(masked, "@"); at > 0 {
		head := masked[:at]
		if colon := strings.LastIndex(head, ":"); colon > 0 && !strings.HasPrefix(head[colon:], "://") {
			masked = head[:colon+1] + "****" + masked[at:]
		}
	}
	fields := strings.Fields(masked)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=****"
		}
	}
	if len(fields) > 1 {
		return strings.Join(fields, " ")
	}
	return masked
}
