package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if _, err := ms.Get(ctx, "missing"); !core.IsStoreNotFound(err) {
		t.Errorf("err = %v, want store not found", err)
	}

	if err := ms.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	got, err := ms.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get = %q (%v), want v", got, err)
	}

	if err := ms.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := ms.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("after delete: err = %v, want store not found", err)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	if err := ms.Set(ctx, "k", []byte("v"), 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ms.Get(ctx, "k"); err != nil {
		t.Fatalf("before expiry: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ms.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("after expiry: err = %v, want store not found", err)
	}
}

func TestMemoryStore_ZSet(t *testing.T) {
	ms := NewMemoryStore()
	defer ms.Close()
	ctx := context.Background()

	for _, z := range []struct {
		member string
		score  float64
	}{
		{"p2", 4}, {"p1", 2}, {"p3", 1}, {"p4", 1},
	} {
		if err := ms.ZAdd(ctx, "pop", z.score, z.member); err != nil {
			t.Fatal(err)
		}
	}

	// 分数降序，并列按成员升序
	got, err := ms.ZRange(ctx, "pop", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"p2", "p1", "p3", "p4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ZRange = %v, want %v", got, want)
	}

	top2, err := ms.ZRange(ctx, "pop", 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(top2, []string{"p2", "p1"}) {
		t.Errorf("ZRange(0,1) = %v", top2)
	}

	score, err := ms.ZScore(ctx, "pop", "p2")
	if err != nil || score != 4 {
		t.Errorf("ZScore = %v (%v), want 4", score, err)
	}
	if _, err := ms.ZScore(ctx, "pop", "ghost"); !core.IsStoreNotFound(err) {
		t.Errorf("ZScore(ghost) err = %v, want store not found", err)
	}
}
