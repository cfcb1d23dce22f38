package cli

import (
	"testing"
	"time"

	"diagnostic-quiz-service/internal/config"
)

func TestReferenceCacheTTLDefaultsToNoExpiry(t *testing.T) {
	var cfg config.Config
	if ttl := referenceCacheTTL(cfg); ttl != 0 {
		t.Fatalf("expected no expiry without reference_ttl, got %v", ttl)
	}

	cfg.Quiz.ReferenceTTL = "5m"
	if ttl := referenceCacheTTL(cfg); ttl != 5*time.Minute {
		t.Fatalf("expected 5m, got %v", ttl)
	}

	cfg.Quiz.ReferenceTTL = "2d"
	if ttl := referenceCacheTTL(cfg); ttl != 48*time.Hour {
		t.Fatalf("expected 48h, got %v", ttl)
	}
}
