package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRecordAndRecent(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	first := Deployment{
		ID:                "d-1",
		CreatedAt:         time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Region:            "us-east-1",
		Cluster:           "web",
		Service:           "api",
		TaskDefinitionArn: "arn:aws:ecs:us-east-1:123456789012:task-definition/web-api:41",
		DesiredCount:      1,
	}
	second := first
	second.ID = "d-2"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	second.TaskDefinitionArn = "arn:aws:ecs:us-east-1:123456789012:task-definition/web-api:42"
	second.DesiredCount = 2
	second.Forced = true

	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	deploys, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(deploys) != 2 {
		t.Fatalf("Expected 2 deploys, got %d", len(deploys))
	}
	if deploys[0].ID != "d-2" {
		t.Errorf("Expected newest deploy first, got %s", deploys[0].ID)
	}
	if !deploys[0].Forced {
		t.Error("Expected forced flag to round-trip")
	}
	if deploys[1].TaskDefinitionArn != first.TaskDefinitionArn {
		t.Errorf("Expected ARN to round-trip, got %s", deploys[1].TaskDefinitionArn)
	}
	if !deploys[1].CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Expected timestamp to round-trip, got %v", deploys[1].CreatedAt)
	}
}

func TestStoreRecentLimit(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		d := Deployment{
			ID:                string(rune('a' + i)),
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
			Region:            "us-east-1",
			Cluster:           "web",
			Service:           "api",
			TaskDefinitionArn: "arn",
			DesiredCount:      1,
		}
		if err := store.Record(ctx, d); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	deploys, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(deploys) != 3 {
		t.Errorf("Expected 3 deploys, got %d", len(deploys))
	}
}
