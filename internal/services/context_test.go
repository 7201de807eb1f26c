package services_test

import (
	"context"
	"testing"

	"prebuild/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "deps")
	ctx = services.WithArtifact(ctx, "ffmpeg")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "deps" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if name, ok := services.ArtifactFromContext(ctx); !ok || name != "ffmpeg" {
		t.Fatalf("unexpected artifact: %v %v", name, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithArtifact(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
	if _, ok := services.ArtifactFromContext(ctx); ok {
		t.Fatal("expected no artifact value")
	}
}
