package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/model"
)

type fakeModel struct {
	name    string
	scoreFn func(features map[string]float64) (float64, error)
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Predict(features map[string]float64) (float64, error) {
	return m.scoreFn(features)
}

func constModel(name string, score float64) *fakeModel {
	return &fakeModel{name: name, scoreFn: func(map[string]float64) (float64, error) {
		return score, nil
	}}
}

func holderOf(m model.Model) *Holder {
	return NewHolder(m, model.Info{Name: m.Name()})
}

func rankItem(id, src string, weight, confidence float64) *core.Item {
	it := core.NewItem(id, core.ItemTypeAgent)
	it.Source = src
	it.Confidence = confidence
	it.Meta["source_weight"] = weight
	return it
}

func rankContext(maxResults int) *core.RecommendContext {
	return &core.RecommendContext{
		RequestID: "req-1",
		Request:   &core.Request{MaxResults: maxResults, ItemTypes: []core.ItemType{core.ItemTypeAgent}},
	}
}

func TestLightShortlistSize(t *testing.T) {
	tests := []struct {
		name       string
		factor     int
		ceiling    int
		maxResults int
		want       int
	}{
		{name: "defaults", factor: 0, ceiling: 0, maxResults: 10, want: 50},
		{name: "ceiling caps size", factor: 0, ceiling: 0, maxResults: 100, want: 200},
		{name: "custom factor", factor: 2, ceiling: 0, maxResults: 10, want: 20},
		{name: "custom ceiling", factor: 5, ceiling: 30, maxResults: 10, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Light{ShortlistFactor: tt.factor, ShortlistCeiling: tt.ceiling}
			if got := n.ShortlistSize(tt.maxResults); got != tt.want {
				t.Errorf("ShortlistSize(%d) = %d, want %d", tt.maxResults, got, tt.want)
			}
		})
	}
}

func TestLightFallbackOrdersByConfidence(t *testing.T) {
	n := &Light{} // 无模型
	rctx := rankContext(10)
	items := []*core.Item{
		rankItem("low", "a", 0.5, 0.2),
		rankItem("high", "a", 0.5, 0.9),
		rankItem("mid", "a", 0.5, 0.5),
	}

	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := []string{"high", "mid", "low"}
	for i, it := range got {
		if it.ID != want[i] {
			t.Errorf("Process()[%d] = %s, want %s", i, it.ID, want[i])
		}
	}

	degraded := rctx.DegradedStages()
	if len(degraded) != 1 || degraded[0] != "light_ranking" {
		t.Errorf("DegradedStages() = %v, want [light_ranking]", degraded)
	}
	if lbl, ok := got[0].GetLabel("light_scored_by"); !ok || lbl.Value != "fallback" {
		t.Errorf("label light_scored_by = %v, want fallback", lbl.Value)
	}
}

func TestLightModelErrorFallsBack(t *testing.T) {
	broken := &fakeModel{name: "broken", scoreFn: func(map[string]float64) (float64, error) {
		return 0, errors.New("predict failed")
	}}
	n := &Light{Models: holderOf(broken)}
	rctx := rankContext(10)
	items := []*core.Item{
		rankItem("a", "s", 0.5, 0.3),
		rankItem("b", "s", 0.5, 0.8),
	}

	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("Process() order = [%s %s], want [b a]", got[0].ID, got[1].ID)
	}
	if len(rctx.DegradedStages()) != 1 {
		t.Errorf("DegradedStages() = %v, want exactly one stage", rctx.DegradedStages())
	}
}

func TestLightTieBreaks(t *testing.T) {
	// 模型给所有候选相同分数，平手链依次生效：
	// 来源权重降序 → 到达顺序升序 → 标识字典序升序。
	n := &Light{Models: holderOf(constModel("const", 0.5))}
	rctx := rankContext(10)
	items := []*core.Item{
		rankItem("c", "light_weight", 0.2, 0.5),
		rankItem("b", "heavy_weight", 0.8, 0.5),
		rankItem("a", "light_weight", 0.2, 0.5),
	}

	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// b 权重最高；c 与 a 权重相同，c 先到达
	want := []string{"b", "c", "a"}
	for i, it := range got {
		if it.ID != want[i] {
			t.Errorf("Process()[%d] = %s, want %s", i, it.ID, want[i])
		}
	}
	if lbl, ok := got[0].GetLabel("light_scored_by"); !ok || lbl.Value != "const" {
		t.Errorf("label light_scored_by = %v, want const", lbl.Value)
	}
}

func TestLightTruncatesToShortlist(t *testing.T) {
	n := &Light{ShortlistFactor: 2}
	rctx := rankContext(2) // shortlist = 4
	var items []*core.Item
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		items = append(items, rankItem(id, "s", 0.5, 0.5))
	}

	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Process() len = %d, want 4", len(got))
	}
}

func TestLightUsesProfileAffinity(t *testing.T) {
	affinity := &fakeModel{name: "affinity", scoreFn: func(f map[string]float64) (float64, error) {
		return f["profile_affinity"], nil
	}}
	n := &Light{Models: holderOf(affinity)}

	user := core.NewUserProfile("u1")
	user.SetPreference("item:loved", 0.9)
	rctx := rankContext(10)
	rctx.User = user

	items := []*core.Item{
		rankItem("other", "s", 0.5, 0.5),
		rankItem("loved", "s", 0.5, 0.5),
	}
	got, err := n.Process(context.Background(), rctx, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got[0].ID != "loved" {
		t.Errorf("Process()[0] = %s, want loved", got[0].ID)
	}
}
