package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/venturekit/funnel/core"
)

const persistentStripes = 64

// Persistent 把画像持久化到 core.Store（内存或 Redis），value 为 JSON。
// 写入走分段锁做 read-modify-write，同一用户的并发交互不会互相覆盖。
type Persistent struct {
	store     core.Store
	keyPrefix string
	emaFactor float64
	locks     [persistentStripes]sync.Mutex
}

// NewPersistent 创建画像存储；keyPrefix 为空时用 "profile"。
func NewPersistent(store core.Store, keyPrefix string, emaFactor float64) *Persistent {
	if keyPrefix == "" {
		keyPrefix = "profile"
	}
	return &Persistent{
		store:     store,
		keyPrefix: keyPrefix,
		emaFactor: emaFactor,
	}
}

func (p *Persistent) key(userID string) string {
	return p.keyPrefix + ":" + userID
}

func (p *Persistent) stripe(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &p.locks[h.Sum32()%persistentStripes]
}

func (p *Persistent) load(ctx context.Context, userID string) (*core.UserProfile, error) {
	data, err := p.store.Get(ctx, p.key(userID))
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewUserProfile(userID), nil
		}
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	var profile core.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	if profile.Preferences == nil {
		profile.Preferences = make(map[string]float64)
	}
	return &profile, nil
}

// Get 返回用户画像；不存在时返回默认空画像（不落库）。
func (p *Persistent) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	return p.load(ctx, userID)
}

// Append 追加交互并回写。
func (p *Persistent) Append(ctx context.Context, userID string, in core.Interaction) error {
	mu := p.stripe(userID)
	mu.Lock()
	defer mu.Unlock()

	profile, err := p.load(ctx, userID)
	if err != nil {
		return err
	}
	applyInteraction(profile, in, p.emaFactor)

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", userID, err)
	}
	return p.store.Set(ctx, p.key(userID), data)
}

var _ Store = (*Persistent)(nil)
