package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type Rotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate Rotate
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	BcryptCost        int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Cache struct {
	StatsTTLSec int
}

type DB struct {
	Driver             string // postgres | mysql | sqlite | memory
	DSN                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type GraphQL struct {
	MaxComplexity  int
	MaxParallelism int
	ListMultiplier int
	LoaderWaitMs   int
}

func (g GraphQL) LoaderWait() time.Duration { return time.Duration(g.LoaderWaitMs) * time.Millisecond }

type Limits struct {
	RPS             float64
	Burst           int
	MaxConcurrent   int64
	MaxBodyBytes    int64
	RequestTimeoutS int
}

type CORS struct {
	AllowOrigins []string
}

type Seed struct {
	AdminEmail       string
	AdminPassword    string
	EmployeeEmail    string
	EmployeePassword string
	Shipments        int
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Cache   Cache
	GraphQL GraphQL `mapstructure:"graphql"`
	Limits  Limits
	CORS    CORS `mapstructure:"cors"`
	Seed    Seed
}

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

func (c Cache) StatsTTL() time.Duration { return time.Duration(c.StatsTTLSec) * time.Second }

func (l Limits) RequestTimeout() time.Duration { return time.Duration(l.RequestTimeoutS) * time.Second }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tms-graphql-api")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 4000)
	v.SetDefault("app.http.readTimeoutSec", 10)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.rotate.filename", "logs/api.log")
	v.SetDefault("log.rotate.maxSizeMB", 100)
	v.SetDefault("log.rotate.maxBackups", 7)
	v.SetDefault("log.rotate.maxAgeDays", 30)

	v.SetDefault("jwt.secret", "your-secret-key")
	v.SetDefault("jwt.issuer", "tms")
	v.SetDefault("jwt.accessTokenTTLMin", 7*24*60) // 7 天
	v.SetDefault("jwt.bcryptCost", 10)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 5)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("cache.statsTTLSec", 30)

	v.SetDefault("graphql.maxComplexity", 1000)
	v.SetDefault("graphql.maxParallelism", 0) // 0：按单页上限计算
	v.SetDefault("graphql.listMultiplier", 20)
	v.SetDefault("graphql.loaderWaitMs", 5)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.maxConcurrent", 300)
	v.SetDefault("limits.maxBodyBytes", 1<<20)
	v.SetDefault("limits.requestTimeoutS", 10)

	v.SetDefault("cors.allowOrigins", []string{"*"})

	v.SetDefault("seed.adminEmail", "admin@tms.com")
	v.SetDefault("seed.adminPassword", "admin123")
	v.SetDefault("seed.employeeEmail", "employee@tms.com")
	v.SetDefault("seed.employeePassword", "employee123")
	v.SetDefault("seed.shipments", 50)
}

// Load 读取 yaml（可缺省）+ APP_ 前缀环境变量
func Load(path string) *Config {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			log.Fatalf("read config: %v", err)
		}
		log.Printf("config file %s not found, using defaults + env", path)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		log.Fatalf("unmarshal config: %v", err)
	}
	return &c
}
