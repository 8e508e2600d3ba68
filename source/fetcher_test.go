package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venturekit/funnel/core"
)

func testContext(maxResults int, itemTypes ...core.ItemType) *core.RecommendContext {
	return &core.RecommendContext{
		RequestID: "req-1",
		UserID:    "u1",
		Request: &core.Request{
			UserID:     "u1",
			ItemTypes:  itemTypes,
			MaxResults: maxResults,
		},
	}
}

func TestFetcherBudget(t *testing.T) {
	tests := []struct {
		name       string
		factor     float64
		maxResults int
		weight     float64
		want       int
	}{
		{name: "weight half", factor: 3, maxResults: 10, weight: 0.5, want: 15},
		{name: "weight point three", factor: 3, maxResults: 10, weight: 0.3, want: 9},
		{name: "weight point two", factor: 3, maxResults: 10, weight: 0.2, want: 6},
		{name: "zero factor falls back to default", factor: 0, maxResults: 10, weight: 0.5, want: 15},
		{name: "fractional result rounds up", factor: 3, maxResults: 5, weight: 0.3, want: 5},
		{name: "zero weight yields zero budget", factor: 3, maxResults: 10, weight: 0, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Fetcher{OverFetchFactor: tt.factor}
			if got := n.Budget(tt.maxResults, tt.weight); got != tt.want {
				t.Errorf("Budget(%d, %v) = %d, want %d", tt.maxResults, tt.weight, got, tt.want)
			}
		})
	}
}

func TestFetcherMergeIsDeterministic(t *testing.T) {
	// 后注册的来源先完成，结果仍按注册顺序合并。
	r := NewRegistry()
	slow := newFake("slow", core.ItemTypeAgent, 0.5, "s1", "s2")
	slow.delay = 30 * time.Millisecond
	fast := newFake("fast", core.ItemTypeAgent, 0.5, "f1", "f2")
	for _, s := range []Source{slow, fast} {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	n := &Fetcher{Registry: r}
	rctx := testContext(10, core.ItemTypeAgent)
	got, err := n.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := []string{"s1", "s2", "f1", "f2"}
	if len(got) != len(want) {
		t.Fatalf("Process() len = %d, want %d", len(got), len(want))
	}
	for i, it := range got {
		if it.ID != want[i] {
			t.Errorf("Process()[%d] = %s, want %s", i, it.ID, want[i])
		}
	}
}

func TestFetcherDecoratesItems(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newFake("agents", core.ItemTypeAgent, 0.4, "a1")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	n := &Fetcher{Registry: r}
	rctx := testContext(10, core.ItemTypeAgent)
	got, err := n.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Process() len = %d, want 1", len(got))
	}

	it := got[0]
	if it.Source != "agents" {
		t.Errorf("Source = %s, want agents", it.Source)
	}
	if w, ok := it.Meta["source_weight"].(float64); !ok || w != 0.4 {
		t.Errorf("Meta[source_weight] = %v, want 0.4", it.Meta["source_weight"])
	}
	if lbl, ok := it.GetLabel("source"); !ok || lbl.Value != "agents" {
		t.Errorf("label source = %v, want agents", lbl.Value)
	}
}

func TestFetcherDecoratesBareItems(t *testing.T) {
	// 来源实现可以直接构造 Item，不要求经过 NewItem
	r := NewRegistry()
	bare := &fakeSource{
		desc:  Descriptor{Name: "bare", Type: core.ItemTypeAgent, Weight: 0.5},
		items: []*core.Item{{ID: "b1"}, {ID: "b2", Score: 0.3}},
	}
	if err := r.Register(bare); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	n := &Fetcher{Registry: r}
	got, err := n.Process(context.Background(), testContext(10, core.ItemTypeAgent), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Process() len = %d, want 2", len(got))
	}
	for _, it := range got {
		if w, ok := it.Meta["source_weight"].(float64); !ok || w != 0.5 {
			t.Errorf("item %s Meta[source_weight] = %v, want 0.5", it.ID, it.Meta["source_weight"])
		}
		if it.Type != core.ItemTypeAgent {
			t.Errorf("item %s Type = %s, want agent", it.ID, it.Type)
		}
		if lbl, ok := it.GetLabel("source"); !ok || lbl.Value != "bare" {
			t.Errorf("item %s label source = %v, want bare", it.ID, lbl.Value)
		}
	}
}

func TestFetcherTruncatesToBudget(t *testing.T) {
	// weight 0.1, maxResults 10, factor 3 → budget 3
	r := NewRegistry()
	s := newFake("a", core.ItemTypeAgent, 0.1, "1", "2", "3", "4", "5", "6")
	if err := r.Register(s); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	n := &Fetcher{Registry: r}
	got, err := n.Process(context.Background(), testContext(10, core.ItemTypeAgent), nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Process() len = %d, want 3", len(got))
	}
}

func TestFetcherSourceFailureIsIsolated(t *testing.T) {
	r := NewRegistry()
	bad := newFake("bad", core.ItemTypeAgent, 0.5)
	bad.err = errors.New("backend down")
	good := newFake("good", core.ItemTypeAgent, 0.5, "g1")
	for _, s := range []Source{bad, good} {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	n := &Fetcher{Registry: r}
	rctx := testContext(10, core.ItemTypeAgent)
	got, err := n.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if len(got) != 1 || got[0].ID != "g1" {
		t.Fatalf("Process() = %v, want [g1]", got)
	}

	degraded := rctx.DegradedStages()
	if len(degraded) != 1 || degraded[0] != "sourcing" {
		t.Errorf("DegradedStages() = %v, want [sourcing]", degraded)
	}
}

func TestFetcherTimeoutIsIsolated(t *testing.T) {
	r := NewRegistry()
	stuck := newFake("stuck", core.ItemTypeAgent, 0.5, "never")
	stuck.delay = time.Second
	fast := newFake("fast", core.ItemTypeAgent, 0.5, "f1")
	for _, s := range []Source{stuck, fast} {
		if err := r.Register(s); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	n := &Fetcher{Registry: r, Timeout: 20 * time.Millisecond}
	rctx := testContext(10, core.ItemTypeAgent)
	got, err := n.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("Process() = %v, want [f1]", got)
	}
}

func TestFetcherAllSourcesFail(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"a", "b"} {
		s := newFake(name, core.ItemTypeAgent, 0.5)
		s.err = errors.New("down")
		if err := r.Register(s); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	n := &Fetcher{Registry: r}
	got, err := n.Process(context.Background(), testContext(10, core.ItemTypeAgent), nil)
	if err != nil {
		t.Fatalf("Process() error = %v, want nil", err)
	}
	if len(got) != 0 {
		t.Fatalf("Process() len = %d, want 0", len(got))
	}
}
