package source

import (
	"fmt"
	"sync"

	"github.com/venturekit/funnel/core"
)

// Registry 持有全部已注册的候选来源。
// 读多写少：注册发生在启动期，之后只有并发读。
// SourcesFor 按注册顺序返回，保证预算分配可复现。
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	byName  map[string]Source
}

func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Source),
	}
}

// Register 注册一个来源。标识重复时返回 DUPLICATE_SOURCE 错误。
func (r *Registry) Register(s Source) error {
	if s == nil {
		return core.NewDomainError(core.ModuleSource, core.ErrorCodeInvalidInput, "source is nil")
	}
	d := s.Descriptor()
	if d.Name == "" {
		return core.NewDomainError(core.ModuleSource, core.ErrorCodeInvalidInput, "source name is empty")
	}
	if !core.ValidItemType(d.Type) {
		return core.NewDomainError(core.ModuleSource, core.ErrorCodeInvalidInput,
			fmt.Sprintf("source %q: unknown item type %q", d.Name, d.Type))
	}
	if d.Weight < 0 || d.Weight > 1 {
		return core.NewDomainError(core.ModuleSource, core.ErrorCodeInvalidInput,
			fmt.Sprintf("source %q: weight %v out of [0,1]", d.Name, d.Weight))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[d.Name]; exists {
		return core.NewDomainError(core.ModuleSource, core.ErrorCodeDuplicateSource,
			fmt.Sprintf("source %q already registered", d.Name))
	}
	r.byName[d.Name] = s
	r.sources = append(r.sources, s)
	return nil
}

// SourcesFor 返回类型命中的来源，保持注册顺序（稳定、确定）。
func (r *Registry) SourcesFor(itemTypes []core.ItemType) []Source {
	want := make(map[core.ItemType]bool, len(itemTypes))
	for _, t := range itemTypes {
		want[t] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		if want[s.Descriptor().Type] {
			out = append(out, s)
		}
	}
	return out
}

// Lookup 按标识查找来源。
func (r *Registry) Lookup(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// All 返回全部来源（注册顺序）。
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}
