package store

import (
	"context"
	"testing"

	"github.com/venturekit/funnel/core"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	if _, err := m.Get(ctx, "missing"); !core.IsNotFound(err) {
		t.Fatalf("Get(missing) error = %v, want NOT_FOUND", err)
	}

	if err := m.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get() = %q, want v", got)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, "k"); !core.IsNotFound(err) {
		t.Errorf("Get() after Delete error = %v, want NOT_FOUND", err)
	}
}

func TestMemoryBatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	if err := m.BatchSet(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	}); err != nil {
		t.Fatalf("BatchSet() error = %v", err)
	}

	got, err := m.BatchGet(ctx, []string{"a", "b", "missing"})
	if err != nil {
		t.Fatalf("BatchGet() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BatchGet() len = %d, want 2", len(got))
	}
	if string(got["a"]) != "1" || string(got["b"]) != "2" {
		t.Errorf("BatchGet() = %v", got)
	}
}

func TestMemoryZSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	// 故意乱序写入
	for member, score := range map[string]float64{
		"mid":  0.5,
		"high": 0.9,
		"low":  0.1,
		"tie":  0.5,
	} {
		if err := m.ZAdd(ctx, "board", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	got, err := m.ZRange(ctx, "board", 0, -1)
	if err != nil {
		t.Fatalf("ZRange() error = %v", err)
	}
	// 分数降序，同分按 member 字典序
	want := []string{"high", "mid", "tie", "low"}
	if len(got) != len(want) {
		t.Fatalf("ZRange() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ZRange()[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	top, err := m.ZRange(ctx, "board", 0, 1)
	if err != nil {
		t.Fatalf("ZRange(0,1) error = %v", err)
	}
	if len(top) != 2 || top[0] != "high" {
		t.Errorf("ZRange(0,1) = %v, want [high mid]", top)
	}

	score, err := m.ZScore(ctx, "board", "high")
	if err != nil {
		t.Fatalf("ZScore() error = %v", err)
	}
	if score != 0.9 {
		t.Errorf("ZScore(high) = %v, want 0.9", score)
	}
	if _, err := m.ZScore(ctx, "board", "missing"); !core.IsNotFound(err) {
		t.Errorf("ZScore(missing) error = %v, want NOT_FOUND", err)
	}
}
