package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	HTTPAddr    string
	APIBaseURL  string
	PostgresDSN string // empty -> in-memory durable storage
	RedisAddr   string // empty -> in-memory session storage
	ServiceName string

	KafkaBrokers    []string // empty -> activity events disabled
	ActivityTopic   string
	ActivityGroup   string
	ActivityWorkers int

	Locale           string
	Currency         string
	TimeZone         string
	ShippingFlatFee  int64 // minor units
	PostalCodeDigits int

	ProductPageSize int
	BlogPageSize    int

	SessionTTL      time.Duration
	CookieSecure    bool
	LoginRatePerMin int

	LogLevel  string
	LogFormat string
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		APIBaseURL:  strings.TrimRight(getenv("API_BASE_URL", "http://localhost:5999/api"), "/"),
		PostgresDSN: getenv("POSTGRES_DSN", ""),
		RedisAddr:   getenv("REDIS_ADDR", ""),
		ServiceName: getenv("SERVICE_NAME", "storefront"),

		KafkaBrokers:    splitCSV(getenv("KAFKA_BROKERS", "")),
		ActivityTopic:   getenv("ACTIVITY_TOPIC", "storefront.activity"),
		ActivityGroup:   getenv("ACTIVITY_GROUP", "activity-svc"),
		ActivityWorkers: getInt("ACTIVITY_WORKERS", 4),

		Locale:           getenv("LOCALE", "en-IN"),
		Currency:         getenv("CURRENCY", "INR"),
		TimeZone:         getenv("TIME_ZONE", "Asia/Kolkata"),
		ShippingFlatFee:  int64(getInt("SHIPPING_FLAT_FEE", 15000)),
		PostalCodeDigits: getInt("POSTAL_CODE_DIGITS", 6),

		ProductPageSize: getInt("PRODUCT_PAGE_SIZE", 20),
		BlogPageSize:    getInt("BLOG_PAGE_SIZE", 9),

		SessionTTL:      getDuration("SESSION_TTL", 12*time.Hour),
		CookieSecure:    getBool("COOKIE_SECURE", false),
		LoginRatePerMin: getInt("LOGIN_RATE_PER_MIN", 10),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),
	}
}

// Location resolves TimeZone, falling back to UTC when the zone is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
