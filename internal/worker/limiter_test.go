package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/chorus/internal/model"
)

func TestNewLimiter_Burst(t *testing.T) {
	if l := NewLimiter(10, 4); l.burst != 4 {
		t.Errorf("burst = %d, want 4", l.burst)
	}
	if l := NewLimiter(10, -1); l.burst != 1 {
		t.Errorf("burst = %d, want 1 for negative input", l.burst)
	}
}

func TestLimiter_BucketPerProvider(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx := context.Background()

	if err := l.Wait(ctx, model.ProviderGemini); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if l.bucket(model.ProviderGemini).Allow() {
		t.Error("gemini burst should be exhausted")
	}
	if !l.bucket(model.ProviderXAI).Allow() {
		t.Error("xai should have its own bucket")
	}
	if l.bucket(model.ProviderGemini) != l.bucket(model.ProviderGemini) {
		t.Error("bucket should be reused for the same provider")
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.01, 1)
	l.bucket(model.ProviderOpenAI).Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, model.ProviderOpenAI); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !l.bucket(model.ProviderOpenAI).Allow() {
			t.Fatalf("unlimited limiter refused request %d", i)
		}
	}
}

func TestLimiter_Nil(t *testing.T) {
	var l *Limiter
	if err := l.Wait(context.Background(), model.ProviderOpenAI); err != nil {
		t.Errorf("nil limiter should not block: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, model.ProviderOpenAI); err == nil {
		t.Error("nil limiter should still report a done context")
	}
}
