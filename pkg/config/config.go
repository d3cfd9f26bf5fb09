package config

import (
	"time"
)

type DB struct {
	Driver          string        `envconfig:"DRIVER" default:"memory" validate:"oneof=memory postgres"`
	Url             string        `envconfig:"URL" validate:"required_if=Driver postgres"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25" validate:"gte=1"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25" validate:"gte=0"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	Migrate         bool          `envconfig:"MIGRATE" default:"true"`
}

type Jwt struct {
	Secret string `envconfig:"SECRET" required:"true" validate:"min=16"`
	Issuer string `envconfig:"ISSUER"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Redis struct {
	URL    string `envconfig:"URL"`
	Stream string `envconfig:"STREAM" default:"bank-ledger"`
	Group  string `envconfig:"GROUP" default:"bank-ledger-audit"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100" validate:"gte=1"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Money struct {
	// Scale is the number of minor-unit digits amounts may carry. The schema stores four.
	Scale int32 `envconfig:"SCALE" default:"2" validate:"gte=0,lte=4"`
}

type Metrics struct {
	Enabled   bool   `envconfig:"ENABLED" default:"true"`
	Namespace string `envconfig:"NAMESPACE" default:"bankcore"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[bankcore]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000" validate:"gte=1,lte=65535"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Money     *Money     `envconfig:"MONEY"`
	Metrics   *Metrics   `envconfig:"METRICS"`
}
