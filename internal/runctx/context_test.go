package runctx_test

import (
	"context"
	"testing"

	"renderhook/internal/runctx"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = runctx.WithJob(ctx, "intro.blend")
	ctx = runctx.WithRunID(ctx, "run-1")
	ctx = runctx.WithDeliveryID(ctx, "del-9")

	if job, ok := runctx.JobFromContext(ctx); !ok || job != "intro.blend" {
		t.Fatalf("unexpected job: %v %v", job, ok)
	}
	if id, ok := runctx.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := runctx.DeliveryIDFromContext(ctx); !ok || id != "del-9" {
		t.Fatalf("unexpected delivery id: %v %v", id, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	if got := runctx.WithJob(ctx, ""); got != ctx {
		t.Fatal("expected blank job to return original context")
	}
	if _, ok := runctx.RunIDFromContext(runctx.WithRunID(ctx, "")); ok {
		t.Fatal("expected no run id value")
	}
}
