package di

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	internalrepo "SignalSmith/internal/repository"
	"SignalSmith/internal/services/reasoning"
	"SignalSmith/pkg/cache"
	"SignalSmith/pkg/config"
	applogger "SignalSmith/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\n"))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestProvideJournalBackends(t *testing.T) {
	cfg := testConfig(t)
	log := applogger.Nop()

	j, cleanup, err := ProvideJournal(cfg, log)
	if err != nil {
		t.Fatalf("memory journal: %v", err)
	}
	defer cleanup()
	if _, ok := j.(*internalrepo.MemoryJournal); !ok {
		t.Fatalf("default backend = %T, want *MemoryJournal", j)
	}

	cfg.Journal.Backend = "none"
	j, cleanup2, err := ProvideJournal(cfg, log)
	if err != nil {
		t.Fatalf("none journal: %v", err)
	}
	defer cleanup2()
	if _, ok := j.(internalrepo.NopJournal); !ok {
		t.Fatalf("none backend = %T, want NopJournal", j)
	}

	cfg.Journal.Backend = "sqlite"
	if _, _, err := ProvideJournal(cfg, log); err == nil || !strings.Contains(err.Error(), "sqlite") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestProvideDisabledIntegrations(t *testing.T) {
	cfg := testConfig(t)
	log := applogger.Nop()

	pub, cleanup, err := ProvidePublisher(cfg, log)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer cleanup()
	if _, ok := pub.(internalrepo.NopPublisher); !ok {
		t.Fatalf("publisher = %T, want NopPublisher", pub)
	}

	n, err := ProvideNotifier(cfg, log)
	if err != nil || n != nil {
		t.Fatalf("notifier = %v, %v; want nil, nil", n, err)
	}
	if l := ProvideRateLimiter(cfg); l != nil {
		t.Fatalf("rate limiter should be nil when disabled, got %T", l)
	}
	consumer, err := ProvideKafkaConsumer(cfg, log, nil, nil)
	if err != nil || consumer != nil {
		t.Fatalf("consumer = %v, %v; want nil, nil", consumer, err)
	}
}

func TestProvideReasonerFallsBackWithoutKey(t *testing.T) {
	cfg := testConfig(t)
	r := ProvideReasoner(cfg, applogger.Nop())
	if _, ok := r.(*reasoning.NoopReasoner); !ok {
		t.Fatalf("reasoner = %T, want *NoopReasoner", r)
	}

	cfg.Reasoning.APIKey = "sk-test"
	r = ProvideReasoner(cfg, applogger.Nop())
	if !strings.HasPrefix(r.Name(), "openai:") {
		t.Fatalf("reasoner name = %q", r.Name())
	}
}

func TestProvideRateLimiterEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.Enabled = true
	l := ProvideRateLimiter(cfg)
	if l == nil {
		t.Fatal("expected a limiter")
	}
	for i := 0; i < cfg.RateLimit.Burst; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst rejected", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("request past burst allowed")
	}
}

func TestProvideCacheHonoursMemoryLimits(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.MaxEntries = 2
	cfg.Cache.CleanupInterval = time.Hour

	svc, cleanup, err := ProvideCache(cfg, applogger.Nop())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer cleanup()
	mc, ok := svc.(*cache.MemoryCache)
	if !ok {
		t.Fatalf("cache = %T, want *MemoryCache", svc)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := mc.Set(ctx, fmt.Sprintf("price:btc:%d", i), i, time.Minute); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if n := mc.Len(); n != 2 {
		t.Fatalf("cache holds %d entries, want max_entries=2", n)
	}
}
