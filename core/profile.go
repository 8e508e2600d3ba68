package core

import (
	"math"
	"time"
)

// Interaction 是一次用户交互记录（追加写，不可改写）。
type Interaction struct {
	Action    string         `json:"action"` // click / accept / dismiss / execute ...
	ItemID    string         `json:"item_id"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// UserProfile 是用户画像：推荐漏斗的"全局上下文 + 特征源 + 决策信号"。
//
// 它不属于某个阶段，而是：
//   - 被粗排/精排共享（只读）
//   - 由反馈链路增量更新（与读链路解耦）
//
// 维度          作用
// 偏好权重      Rank 核心特征
// 交互历史      反馈回放 / 历史召回
// 专长与目标    冷启动 / 基础过滤
type UserProfile struct {
	UserID string `json:"user_id"`

	// Preferences 偏好特征权重，key: 特征名，value: 权重（始终为有限值）。
	Preferences map[string]float64 `json:"preferences"`

	// History 交互历史，按时间追加，绝不改写或重排。
	History []Interaction `json:"history"`

	// Expertise / Goals 是用户声明的专长与目标标签集合。
	Expertise map[string]struct{} `json:"expertise,omitempty"`
	Goals     map[string]struct{} `json:"goals,omitempty"`

	UpdateTime time.Time `json:"update_time"`
}

// NewUserProfile 创建一个空画像（首次访问时的默认形态）。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		Preferences: make(map[string]float64),
		History:     make([]Interaction, 0),
		Expertise:   make(map[string]struct{}),
		Goals:       make(map[string]struct{}),
		UpdateTime:  time.Now(),
	}
}

// SetPreference 设置偏好权重；非有限值会被忽略。
func (p *UserProfile) SetPreference(feature string, weight float64) {
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return
	}
	if p.Preferences == nil {
		p.Preferences = make(map[string]float64)
	}
	p.Preferences[feature] = weight
	p.UpdateTime = time.Now()
}

// PreferenceWeight 读取偏好权重，缺失时返回 0。
func (p *UserProfile) PreferenceWeight(feature string) float64 {
	if p.Preferences == nil {
		return 0
	}
	return p.Preferences[feature]
}

// AppendInteraction 追加一条交互记录。
func (p *UserProfile) AppendInteraction(in Interaction) {
	p.History = append(p.History, in)
	p.UpdateTime = time.Now()
}

// RecentItemIDs 返回最近 n 条交互对应的物品 ID（新在前，去重）。
func (p *UserProfile) RecentItemIDs(n int) []string {
	if n <= 0 || len(p.History) == 0 {
		return nil
	}
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for i := len(p.History) - 1; i >= 0 && len(out) < n; i-- {
		id := p.History[i].ItemID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// HasGoal 检查用户是否声明了某个目标。
func (p *UserProfile) HasGoal(goal string) bool {
	_, ok := p.Goals[goal]
	return ok
}

// Clone 返回画像的深拷贝，用于快照读。
func (p *UserProfile) Clone() *UserProfile {
	cp := &UserProfile{
		UserID:     p.UserID,
		UpdateTime: p.UpdateTime,
	}
	cp.Preferences = make(map[string]float64, len(p.Preferences))
	for k, v := range p.Preferences {
		cp.Preferences[k] = v
	}
	cp.History = make([]Interaction, len(p.History))
	copy(cp.History, p.History)
	cp.Expertise = make(map[string]struct{}, len(p.Expertise))
	for k := range p.Expertise {
		cp.Expertise[k] = struct{}{}
	}
	cp.Goals = make(map[string]struct{}, len(p.Goals))
	for k := range p.Goals {
		cp.Goals[k] = struct{}{}
	}
	return cp
}
