package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"tms-graphql-api/internal/core/config"
	"tms-graphql-api/internal/core/database"
	"tms-graphql-api/internal/core/logger"
	"tms-graphql-api/internal/repo"
	"tms-graphql-api/internal/seed"
)

func main() {
	var (
		cfgPath = pflag.StringP("config", "c", os.Getenv("CONFIG_PATH"), "config file")
		reset   = pflag.Bool("reset", false, "delete all users, shipments and events first")
		count   = pflag.IntP("shipments", "n", -1, "number of demo shipments (default from seed.shipments)")
	)
	pflag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(*cfgPath)
	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	if cfg.DB.Driver == "memory" {
		log.Fatal("seeding the in-memory store is pointless, configure a database")
	}
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, log)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *reset {
		if err := repo.Reset(ctx, db); err != nil {
			log.Fatal("reset failed", zap.Error(err))
		}
		log.Info("tables cleared")
	}

	n := cfg.Seed.Shipments
	if *count >= 0 {
		n = *count
	}
	res, err := seed.Run(ctx, repo.NewUserRepo(db), repo.NewShipmentRepo(db), seed.Options{
		AdminEmail:       cfg.Seed.AdminEmail,
		AdminPassword:    cfg.Seed.AdminPassword,
		EmployeeEmail:    cfg.Seed.EmployeeEmail,
		EmployeePassword: cfg.Seed.EmployeePassword,
		Shipments:        n,
		BcryptCost:       cfg.JWT.BcryptCost,
		Workers:          max(1, cfg.DB.MaxOpenConns/2),
	}, log)
	if err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}

	fmt.Printf("Admin:    %s / %s\n", res.Admin.Email, cfg.Seed.AdminPassword)
	fmt.Printf("Employee: %s / %s\n", res.Employee.Email, cfg.Seed.EmployeePassword)
	fmt.Printf("Created %d shipments, %d tracking events\n", res.Shipments, res.Events)
}
