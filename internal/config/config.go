// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RabbitConnectionString  string `yaml:"rabbit_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	BillingProvider         `yaml:"billing_provider"`
	Entitlement             `yaml:"entitlement"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// BillingProvider настройки внешнего платёжного провайдера.
// PriceID — единственный тариф premium-подписки, SuccessURL и CancelURL —
// фиксированные адреса возврата после checkout.
type BillingProvider struct {
	APIURL        string `yaml:"api_url"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	PriceID       string `yaml:"price_id"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
	PortalReturn  string `yaml:"portal_return_url"`
}

// Entitlement настройки резолвера прав доступа: время жизни кешированного
// решения, интервал фонового тика и бюджет опроса после возврата с checkout.
type Entitlement struct {
	CacheTTL         time.Duration `yaml:"cache_ttl" env-default:"5m"`
	FallbackInterval time.Duration `yaml:"fallback_interval" env-default:"1m"`
	ConfirmAttempts  int           `yaml:"confirm_attempts" env-default:"5"`
	ConfirmDelay     time.Duration `yaml:"confirm_delay" env-default:"2s"`
	SweepInterval    time.Duration `yaml:"sweep_interval" env-default:"10m"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной окружения CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
