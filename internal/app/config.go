package app

import (
	"github.com/peakline/aeo-backend/internal/platform/envutil"
)

type Config struct {
	JWTSecretKey string
	Port         string
	Environment  string
	Version      string
}

func LoadConfig() Config {
	return Config{
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		Port:         envutil.String("PORT", "8080"),
		Environment:  envutil.String("APP_ENV", "development"),
		Version:      envutil.String("APP_VERSION", "dev"),
	}
}
