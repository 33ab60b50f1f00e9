package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config 应用运行所需的全部配置，来自 .env 与进程环境变量
type Config struct {
	Port   string `env:"PORT" envDefault:"3000"`
	AppEnv string `env:"APP_ENV" envDefault:"development"`

	Mongo Mongo
	JWT   JWT
	Redis Redis
	HTTP  HTTP
	Home  Home
	Order Order
	Log   Log
}

// Mongo 连接与库名配置
type Mongo struct {
	Host             string `env:"MONGODB_HOST" envDefault:"127.0.0.1"`
	Port             int    `env:"MONGODB_PORT" envDefault:"27017"`
	User             string `env:"MONGODB_USER"`
	Password         string `env:"MONGODB_PASSWORD"`
	AuthSource       string `env:"MONGODB_AUTH_SOURCE" envDefault:"admin"`
	DirectConnection bool   `env:"MONGODB_DIRECT_CONNECTION" envDefault:"true"`

	UserDBName     string `env:"USER_DB_NAME" envDefault:"user_db"`
	ShopDBPrefix   string `env:"SHOP_DB_PREFIX" envDefault:"shop"`
	OrdersDBName   string `env:"ORDERS_DB_NAME" envDefault:"orders_db"`
	ShopTemplateDB string `env:"SHOP_TEMPLATE_DB" envDefault:"shop_template"`

	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize    uint64        `env:"MONGODB_MIN_POOL_SIZE" envDefault:"0"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	SocketTimeout  time.Duration `env:"MONGODB_SOCKET_TIMEOUT" envDefault:"30s"`
	PingTimeout    time.Duration `env:"MONGODB_PING_TIMEOUT" envDefault:"5s"`
	EnsureIndexes  bool          `env:"MONGODB_ENSURE_INDEXES" envDefault:"true"`
}

type JWT struct {
	Secret    string        `env:"JWT_SECRET"`
	ExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
}

// Redis 为空地址时缓存关闭
type Redis struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	AuthCacheTTL time.Duration `env:"AUTH_CACHE_TTL" envDefault:"10m"`
	HomeCacheTTL time.Duration `env:"HOME_CACHE_TTL" envDefault:"60s"`
}

type HTTP struct {
	CORSAllowOrigins string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" envDefault:"5"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Home 首页跨店聚合
type Home struct {
	StaticShops []string `env:"HOME_STATIC_SHOPS" envSeparator:"," envDefault:"shop001,shop002,shop003"`
	Fanout      int      `env:"HOME_FANOUT" envDefault:"8"`
	FanoutRPS   float64  `env:"HOME_FANOUT_RPS" envDefault:"50"`
}

type Order struct {
	StrictTransitions bool          `env:"ORDER_STRICT_TRANSITIONS" envDefault:"true"`
	SweepEnabled      bool          `env:"ORDER_SWEEP_ENABLED" envDefault:"true"`
	SweepCron         string        `env:"ORDER_SWEEP_CRON" envDefault:"0 */5 * * * *"`
	PayTimeout        time.Duration `env:"ORDER_PAY_TIMEOUT" envDefault:"30m"`
}

type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	File       string `env:"LOG_FILE" envDefault:"logs/app.log"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET 未配置")

// Load 加载 .env 文件（不存在时仅打印警告）后解析环境变量
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("未能加载 .env 文件: %v", err)
	}
	return Parse()
}

// Parse 只从当前进程环境变量解析
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return ErrMissingJWTSecret
	}
	if c.Mongo.ShopDBPrefix == "" {
		return errors.New("SHOP_DB_PREFIX 不能为空")
	}
	if c.Home.Fanout < 1 {
		c.Home.Fanout = 1
	}
	return nil
}

// Addr fiber 监听地址
func (c *Config) Addr() string {
	return ":" + c.Port
}
