package config

import "github.com/caarlos0/env/v11"

type Config struct {
	Port           int    `env:"PORT"                  envDefault:"3000"`
	DBPath         string `env:"DB_PATH"               envDefault:"data/kemono.db"`
	APIBaseURL     string `env:"KEMONO_API_BASE_URL"   envDefault:"https://kemono.cr/api/v1"`
	SiteBaseURL    string `env:"KEMONO_SITE_BASE_URL"  envDefault:"https://kemono.cr"`
	SessionCookie  string `env:"KEMONO_SESSION_COOKIE"`
	RefreshEnabled bool   `env:"REFRESH_ENABLED"       envDefault:"true"`
	RefreshSpec    string `env:"REFRESH_CRON"          envDefault:"0 * * * *"`
}

func LoadConfig() Config {
	var cfg Config
	env.Must(cfg, env.Parse(&cfg))
	return cfg
}
