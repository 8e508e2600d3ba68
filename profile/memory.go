package profile

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/venturekit/funnel/core"
)

// Memory 是内存画像存储。
// 每个用户一个 slot：写入持 slot 锁并整体替换指针（copy-on-write），
// 读取只做一次原子 load，天然是快照一致的、无锁的。
type Memory struct {
	// EMAFactor 偏好更新步长，0 时取 DefaultEMAFactor。
	EMAFactor float64

	slots sync.Map // userID -> *slot
}

type slot struct {
	mu      sync.Mutex
	current atomic.Pointer[core.UserProfile]
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) slotFor(userID string) *slot {
	if v, ok := m.slots.Load(userID); ok {
		return v.(*slot)
	}
	s := &slot{}
	s.current.Store(core.NewUserProfile(userID))
	actual, _ := m.slots.LoadOrStore(userID, s)
	return actual.(*slot)
}

// Get 返回画像快照（深拷贝），首次访问创建默认空画像。
func (m *Memory) Get(_ context.Context, userID string) (*core.UserProfile, error) {
	return m.slotFor(userID).current.Load().Clone(), nil
}

// Append 追加交互并更新偏好。同一用户的写入串行。
func (m *Memory) Append(_ context.Context, userID string, in core.Interaction) error {
	s := m.slotFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Clone()
	applyInteraction(next, in, m.EMAFactor)
	s.current.Store(next)
	return nil
}

var _ Store = (*Memory)(nil)
