package rank

import (
	"sync/atomic"

	"github.com/venturekit/funnel/model"
)

// Holder 持有某个阶段的激活模型引用，支持热替换。
// 替换通过不可变快照交换完成：每个请求在阶段入口 Snapshot 一次，
// 之后整个阶段都使用同一个模型，绝不出现新旧混用。
type Holder struct {
	ref atomic.Pointer[slot]
}

type slot struct {
	m    model.Model
	info model.Info
}

// NewHolder 创建 Holder，m 可以为 nil（表示该阶段无可用模型，走降级）。
func NewHolder(m model.Model, info model.Info) *Holder {
	h := &Holder{}
	h.Swap(m, info)
	return h
}

// Swap 原子替换激活模型。对在途请求无影响。
func (h *Holder) Swap(m model.Model, info model.Info) {
	h.ref.Store(&slot{m: m, info: info})
}

// Snapshot 返回当前激活模型（可能为 nil）。
func (h *Holder) Snapshot() model.Model {
	s := h.ref.Load()
	if s == nil {
		return nil
	}
	return s.m
}

// Info 返回当前激活模型的申报特性。
func (h *Holder) Info() model.Info {
	s := h.ref.Load()
	if s == nil {
		return model.Info{}
	}
	return s.info
}
