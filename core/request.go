package core

import "fmt"

// Request 是一次推荐请求的输入。
// Params 是可选的上下文包：当前任务、业务目标、资源约束、时间视野等。
type Request struct {
	UserID     string
	ItemTypes  []ItemType     // 需要考虑的候选类型集合
	MaxResults int            // 最大返回条数，必须 >= 1
	Params     map[string]any // 请求级上下文（task / goal / constraints / horizon ...）
}

// Validate 校验请求。只有校验失败会以错误形式返回给调用方；
// 来源/模型层面的故障都在链路内降级处理。
func (r *Request) Validate() error {
	if r == nil {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput, "request is nil")
	}
	if r.MaxResults < 1 {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
			fmt.Sprintf("max_results must be >= 1, got %d", r.MaxResults))
	}
	if len(r.ItemTypes) == 0 {
		return NewDomainError(ModuleEngine, ErrorCodeInvalidInput, "item_types is empty")
	}
	for _, t := range r.ItemTypes {
		if !ValidItemType(t) {
			return NewDomainError(ModuleEngine, ErrorCodeInvalidInput,
				fmt.Sprintf("unknown item type %q", t))
		}
	}
	return nil
}
