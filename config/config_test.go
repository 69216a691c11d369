package config

import (
	"reflect"
	"testing"
	"time"
)

func TestInitConfigFromEnv(t *testing.T) {
	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	t.Setenv("PORT", "8088")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("REDIS_ENABLED", "off")
	t.Setenv("RABBITMQ_USER", "shelf user")
	t.Setenv("RABBITMQ_PASSWORD", "p@ss")
	t.Setenv("RABBITMQ_VHOST", "/")
	t.Setenv("CLEANUP_RETRY_DELAYS", "1s, 5s,1m")
	t.Setenv("CLEANUP_RATE", "2.5")
	t.Setenv("ADMIN_SESSION_TTL", "not-a-duration")
	t.Setenv("JWT_SECRET", "")
	InitConfig()

	if AppConfig.Port != "8088" || AppConfig.DBDriver != "sqlite" || AppConfig.RedisEnabled {
		t.Fatalf("unexpected config: %+v", AppConfig)
	}
	if !AppConfig.IsProduction() {
		t.Fatal("APP_ENV=Production should be production")
	}
	if AppConfig.RabbitMQURL != "amqp://shelf%20user:p@ss@localhost:5672/%2F" {
		t.Fatalf("rabbit url = %q", AppConfig.RabbitMQURL)
	}
	want := []time.Duration{time.Second, 5 * time.Second, time.Minute}
	if !reflect.DeepEqual(AppConfig.CleanupRetryDelays, want) {
		t.Fatalf("retry delays = %v", AppConfig.CleanupRetryDelays)
	}
	if AppConfig.CleanupRate != 2.5 {
		t.Fatalf("rate = %v", AppConfig.CleanupRate)
	}
	if AppConfig.AdminSessionTTL != 12*time.Hour {
		t.Fatalf("bad duration should fall back to default, got %v", AppConfig.AdminSessionTTL)
	}
	if AppConfig.JWTSecret != "" || AppConfig.JWTConfigured() {
		t.Fatalf("JWT secret must not default to a value, got %q", AppConfig.JWTSecret)
	}
}

func TestJWTConfigured(t *testing.T) {
	cases := map[string]bool{
		"":                false,
		"   ":             false,
		InsecureJWTSecret: false,
		" change-me ":     false,
		"7b1f0c2e9a":      true,
	}
	for secret, want := range cases {
		if got := (Config{JWTSecret: secret}).JWTConfigured(); got != want {
			t.Errorf("JWTConfigured(%q) = %v, want %v", secret, got, want)
		}
	}
}

func TestEnvListHelpers(t *testing.T) {
	t.Setenv("SHELF_LIST", " .pdf, ,docx ")
	if got := getEnvList("SHELF_LIST", nil); !reflect.DeepEqual(got, []string{".pdf", "docx"}) {
		t.Fatalf("getEnvList = %v", got)
	}
	t.Setenv("SHELF_DURS", "1s,oops")
	def := []time.Duration{time.Hour}
	if got := getEnvDurationList("SHELF_DURS", def); !reflect.DeepEqual(got, def) {
		t.Fatalf("invalid list should fall back, got %v", got)
	}
}

func TestUploadPolicy(t *testing.T) {
	p := NewUploadPolicy("bucket", 0, []string{"PDF", ".pdf", " .Docx ", ""}, 0)
	if p.MaxUploadBytes != DefaultMaxUploadBytes || p.SignedURLTTL != 60*time.Second {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if !reflect.DeepEqual(p.AllowedExtensions, []string{".pdf", ".docx"}) {
		t.Fatalf("extensions = %v", p.AllowedExtensions)
	}
	for _, ext := range []string{".pdf", "pdf", ".DOCX"} {
		if !p.Allows(ext) {
			t.Errorf("%q should be allowed", ext)
		}
	}
	for _, ext := range []string{".exe", "", "."} {
		if p.Allows(ext) {
			t.Errorf("%q should be rejected", ext)
		}
	}
}
