package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every value the service reads from the environment.
// It is loaded once in main and handed to the constructors that need it.
type Config struct {
	Env         string
	ServiceName string
	Port        string
	MetricsPort string

	MongoURI string
	MongoDB  string

	MPAccessToken   string
	MPBaseURL       string
	MPWebhookSecret string
	MPPayerEmail    string
	PublicURL       string

	RedisAddr string

	FixturesAPIKey   string
	FixturesBaseURL  string
	FixturesCacheTTL time.Duration

	WhatsAppToken   string
	WhatsAppPhoneID string
	WhatsAppBaseURL string

	KafkaBrokers           []string
	TopicBetConfirmed      string
	ShutdownTimeout        time.Duration
	ProcessorClientTimeout time.Duration
}

// Load reads .env (if present) and the process environment.
func Load(envFile string) (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load(envFile)

	cfg := Config{
		Env:         getEnv("APP_ENV", "local"),
		ServiceName: getEnv("SERVICE_NAME", "apostas-api"),
		Port:        getEnv("PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9095"),

		MongoURI: os.Getenv("MONGOURI"),
		MongoDB:  getEnv("MONGO_DB", "apostasdb"),

		MPAccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		MPBaseURL:       getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		MPWebhookSecret: os.Getenv("MP_WEBHOOK_SECRET"),
		MPPayerEmail:    getEnv("MP_PAYER_EMAIL", "pagador@apostas.app"),
		PublicURL:       strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		FixturesAPIKey:   os.Getenv("FIXTURES_API_KEY"),
		FixturesBaseURL:  getEnv("FIXTURES_BASE_URL", "https://v3.football.api-sports.io"),
		FixturesCacheTTL: getDuration("FIXTURES_CACHE_TTL", 5*time.Minute),

		WhatsAppToken:   os.Getenv("WHATSAPP_TOKEN"),
		WhatsAppPhoneID: os.Getenv("WHATSAPP_PHONE_ID"),
		WhatsAppBaseURL: getEnv("WHATSAPP_BASE_URL", "https://graph.facebook.com/v20.0"),

		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		TopicBetConfirmed:      getEnv("KAFKA_TOPIC_BET_CONFIRMED", "bet_confirmed"),
		ShutdownTimeout:        getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		ProcessorClientTimeout: getDuration("MP_CLIENT_TIMEOUT", 10*time.Second),
	}

	if cfg.MongoURI == "" {
		return cfg, errors.New("MONGOURI environment variable not set")
	}
	if cfg.MPAccessToken == "" {
		return cfg, errors.New("MP_ACCESS_TOKEN environment variable not set")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
