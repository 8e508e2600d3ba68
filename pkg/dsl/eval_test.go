package dsl

import (
	"testing"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/pkg/utils"
)

func TestCompileAndEvaluate(t *testing.T) {
	item := core.NewItem("a1", core.ItemTypeBusinessAction)
	item.Score = 0.9
	item.Confidence = 0.15
	item.Source = "agent_catalog"
	item.PutLabel("scored_by", utils.Label{Value: "fallback", Source: "rank"})

	rctx := &core.RecommendContext{
		UserID: "u1",
		Params: map[string]any{"goal": "growth"},
	}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "type and confidence", expr: `item.type == "business_action" && item.confidence < 0.2`, want: true},
		{name: "score threshold", expr: `item.score > 0.95`, want: false},
		{name: "source match", expr: `item.source == "agent_catalog"`, want: true},
		{name: "label shorthand", expr: `label.scored_by == "fallback"`, want: true},
		{name: "label full form", expr: `item.labels.scored_by.source == "rank"`, want: true},
		{name: "rctx user", expr: `rctx.user_id == "u1"`, want: true},
		{name: "rctx params", expr: `rctx.params.goal == "growth"`, want: true},
		{name: "empty expression is always true", expr: "", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile(%q) error = %v", tt.expr, err)
			}
			got, err := p.Evaluate(item, rctx)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestCompileInvalid(t *testing.T) {
	if _, err := Compile("item.score >="); err == nil {
		t.Error("Compile() error = nil, want syntax error")
	}
}

func TestEvaluateMissingKey(t *testing.T) {
	p, err := Compile(`label.nonexistent == "x"`)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	item := core.NewItem("a", core.ItemTypeAgent)
	if _, err := p.Evaluate(item, nil); err == nil {
		t.Error("Evaluate() error = nil, want missing-key error")
	}
}
