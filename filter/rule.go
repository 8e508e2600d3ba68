package filter

import (
	"context"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/pkg/dsl"
)

// Rule 是基于 CEL 表达式的业务规则过滤器：表达式为 true 的候选被移除。
//
// 示例：
//
//	r, _ := filter.NewRule("item.type == \"business_action\" && item.confidence < 0.2")
type Rule struct {
	prg *dsl.Program
}

// NewRule 编译一条排除规则。表达式非法时返回错误；空表达式不过滤任何候选。
func NewRule(expr string) (*Rule, error) {
	if expr == "" {
		return &Rule{}, nil
	}
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Rule{prg: prg}, nil
}

func (f *Rule) Name() string {
	return "filter.rule"
}

// Expr 返回规则表达式文本。
func (f *Rule) Expr() string {
	if f.prg == nil {
		return ""
	}
	return f.prg.Expr()
}

func (f *Rule) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.prg == nil || item == nil {
		return false, nil
	}
	matched, err := f.prg.Evaluate(item, rctx)
	if err != nil {
		// 规则求值失败不拦截候选
		return false, nil
	}
	return matched, nil
}
