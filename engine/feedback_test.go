package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/profile"
)

type countingObserver struct {
	observe.Nop
	mu      sync.Mutex
	dropped int
}

func (o *countingObserver) FeedbackDropped() {
	o.mu.Lock()
	o.dropped++
	o.mu.Unlock()
}

func TestFeedbackCollectorFlushOnClose(t *testing.T) {
	profiles := profile.NewMemory()
	c := NewFeedbackCollector(profiles, nil, 16)

	for i := 0; i < 5; i++ {
		c.Submit(FeedbackEvent{UserID: "u1", Action: "click", ItemID: "x"})
	}
	c.Close() // 冲刷缓冲

	p, err := profiles.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(p.History) != 5 {
		t.Errorf("history len = %d, want 5", len(p.History))
	}
}

func TestFeedbackCollectorDefaultsTimestamp(t *testing.T) {
	profiles := profile.NewMemory()
	c := NewFeedbackCollector(profiles, nil, 16)

	c.Submit(FeedbackEvent{UserID: "u1", Action: "click", ItemID: "x"})
	c.Close()

	p, _ := profiles.Get(context.Background(), "u1")
	if len(p.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(p.History))
	}
	if p.History[0].Timestamp.IsZero() {
		t.Error("interaction timestamp is zero, want defaulted")
	}
}

// blockingProfiles 卡住 Append，让缓冲保持占满。
type blockingProfiles struct {
	inner profile.Store
	gate  chan struct{}
}

func (b *blockingProfiles) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	return b.inner.Get(ctx, userID)
}

func (b *blockingProfiles) Append(ctx context.Context, userID string, in core.Interaction) error {
	<-b.gate
	return b.inner.Append(ctx, userID, in)
}

func TestFeedbackCollectorDropsWhenFull(t *testing.T) {
	obs := &countingObserver{}
	gate := make(chan struct{})
	blocked := &blockingProfiles{inner: profile.NewMemory(), gate: gate}
	c := NewFeedbackCollector(blocked, obs, 1)

	// 第一条事件被消费协程取走后卡在 Append；
	// 第二条占满缓冲；第三条必然被丢弃。
	c.Submit(FeedbackEvent{UserID: "u1", Action: "click", ItemID: "a"})
	time.Sleep(20 * time.Millisecond)
	c.Submit(FeedbackEvent{UserID: "u1", Action: "click", ItemID: "b"})
	c.Submit(FeedbackEvent{UserID: "u1", Action: "click", ItemID: "c"})

	obs.mu.Lock()
	dropped := obs.dropped
	obs.mu.Unlock()
	if dropped == 0 {
		t.Error("dropped = 0, want at least one dropped event")
	}

	close(gate)
	c.Close()
}
