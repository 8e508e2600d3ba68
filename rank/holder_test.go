package rank

import (
	"testing"

	"github.com/venturekit/funnel/model"
)

func TestHolderSwap(t *testing.T) {
	h := NewHolder(nil, model.Info{})
	if h.Snapshot() != nil {
		t.Fatal("Snapshot() != nil for empty holder")
	}

	v1 := constModel("v1", 0.1)
	h.Swap(v1, model.Info{Name: "v1", Stage: "light"})
	if got := h.Snapshot(); got != v1 {
		t.Fatalf("Snapshot() = %v, want v1", got)
	}
	if info := h.Info(); info.Name != "v1" || info.Stage != "light" {
		t.Errorf("Info() = %+v, want v1/light", info)
	}

	// 热替换：旧快照仍可用，新快照立即生效
	old := h.Snapshot()
	v2 := constModel("v2", 0.2)
	h.Swap(v2, model.Info{Name: "v2"})
	if old.Name() != "v1" {
		t.Errorf("old snapshot Name() = %s, want v1", old.Name())
	}
	if h.Snapshot().Name() != "v2" {
		t.Errorf("new snapshot Name() = %s, want v2", h.Snapshot().Name())
	}
}
