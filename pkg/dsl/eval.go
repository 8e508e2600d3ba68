package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/venturekit/funnel/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
	celEnvErr  error
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是一条预编译的规则表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可被并发地对多个 item 求值。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：item.source == "agent_catalog" / item.type == "business_action"
//   - 数值：item.score > 0.7 / item.confidence >= 0.5
//   - 逻辑：item.type == "agent" && item.score > 0.8
//   - 标签：label.scored_by == "fallback"
//   - 上下文：rctx.user_id == "u1" / rctx.params.goal == "growth"
//
// 示例：
//   - `item.type == "business_action" && item.confidence < 0.2` → 低置信业务动作
//   - `label.source.contains("beta_")` → 来自 beta 来源
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译一条规则表达式。空表达式恒为 true。
func Compile(expr string) (*Program, error) {
	p := &Program{expr: expr}
	if expr == "" {
		return p, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	p.prg = prg
	return p, nil
}

// Expr 返回原始表达式文本。
func (p *Program) Expr() string { return p.expr }

// Evaluate 对单个 item 求值，返回布尔结果。
// 注意：CEL 访问不存在的 key 会报错，用 label.key != null 检查存在性。
func (p *Program) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if p.prg == nil {
		return true, nil
	}

	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]interface{} {
	labels := make(map[string]interface{}, len(item.Labels))
	labelAccessor := make(map[string]interface{}, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.xxx 直接返回 value，兼容简写
		labelAccessor[k] = v.Value
	}

	itemMap := map[string]interface{}{
		"id":         item.ID,
		"type":       string(item.Type),
		"score":      item.Score,
		"confidence": item.Confidence,
		"source":     item.Source,
		"meta":       item.Meta,
		"labels":     labels,
	}

	rctxMap := map[string]interface{}{}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID
		rctxMap["request_id"] = rctx.RequestID
		rctxMap["params"] = rctx.Params
	}

	return map[string]interface{}{
		"item":  itemMap,
		"label": labelAccessor,
		"rctx":  rctxMap,
	}
}
