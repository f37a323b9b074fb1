package observability

import (
	"context"
	"testing"
	"time"

	"github.com/koopa0/sage/internal/config"
	"github.com/koopa0/sage/internal/log"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracingConfig{Enabled: false}, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown func is nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("no-op shutdown error = %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	cfg := config.TracingConfig{
		Enabled:     true,
		Endpoint:    "localhost:4318",
		ServiceName: "sage-test",
		Environment: "test",
	}

	shutdown, err := Setup(context.Background(), cfg, log.NewNop())
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	// Shutdown must return even with no collector listening; the batch
	// exporter drops what it cannot deliver within the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
