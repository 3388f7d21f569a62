package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		// Required by the bot binary only; the api binary runs without it.
		BotToken    string `env:"BOT_TOKEN"`
		APIBaseURL  string `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
		PollTimeout int    `env:"TELEGRAM_POLL_TIMEOUT_SECONDS" envDefault:"30"`
		Workers     int    `env:"BOT_WORKERS" envDefault:"4"`
	}

	// Boot defaults only; the settings table wins once populated.
	AdminID          int64  `env:"ADMIN_ID" envDefault:"0"`
	RateLimitSeconds int    `env:"RATE_LIMIT_SECONDS" envDefault:"30"`
	DigenToken       string `env:"DIGEN_TOKEN" envDefault:""`
	DigenSession     string `env:"DIGEN_SESSION" envDefault:""`

	Digen struct {
		URL              string `env:"DIGEN_URL" envDefault:"https://api.digen.ai/v2/tools/text_to_image"`
		ImageURLTemplate string `env:"DIGEN_IMAGE_URL_TEMPLATE" envDefault:"https://liveme-image.s3.amazonaws.com/%s-%d.jpeg"`
		Width            int    `env:"DIGEN_WIDTH" envDefault:"512"`
		Height           int    `env:"DIGEN_HEIGHT" envDefault:"512"`
		BatchSize        int    `env:"DIGEN_BATCH_SIZE" envDefault:"4"`
		TimeoutSeconds   int    `env:"DIGEN_TIMEOUT_SECONDS" envDefault:"60"`
	}

	Fetch struct {
		TimeoutSeconds int `env:"FETCH_TIMEOUT_SECONDS" envDefault:"20"`
	}

	Video struct {
		Enabled         bool   `env:"VIDEO_ENABLED" envDefault:"true"`
		DurationSeconds int    `env:"VIDEO_DURATION_SECONDS" envDefault:"5"`
		FFmpegPath      string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	}

	Translate struct {
		URL            string `env:"TRANSLATE_URL" envDefault:"https://translate.googleapis.com/translate_a/single"`
		TargetLang     string `env:"TRANSLATE_TARGET_LANG" envDefault:"en"`
		TimeoutSeconds int    `env:"TRANSLATE_TIMEOUT_SECONDS" envDefault:"10"`
	}

	DBDSN string `env:"DB_DSN" envDefault:"bot_data.db"`

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:""`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Empty spec disables the digest.
	DigestCron string `env:"STATS_DIGEST_CRON" envDefault:""`

	API struct {
		Port              int    `env:"API_PORT" envDefault:"8080"`
		JWTSecret         string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
		AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH" envDefault:""`
	}
}

func Load() *Config {
	// Missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
	return cfg
}
