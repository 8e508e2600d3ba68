package engine

import (
	"context"
	"sync"
	"time"

	"github.com/venturekit/funnel/core"
	"github.com/venturekit/funnel/observe"
	"github.com/venturekit/funnel/profile"
)

// FeedbackEvent 是一次用户交互反馈。
type FeedbackEvent struct {
	UserID    string
	Action    string // click / accept / dismiss / execute ...
	ItemID    string
	Context   map[string]any
	Timestamp time.Time
}

// FeedbackCollector 异步消费反馈事件并写入画像存储。
// Submit 永不阻塞读链路：缓冲满时丢弃事件并上报，而不是反压调用方。
type FeedbackCollector struct {
	profiles profile.Store
	observer observe.Observer

	events chan FeedbackEvent
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFeedbackCollector 启动后台消费协程。bufSize <= 0 时取 1024。
func NewFeedbackCollector(profiles profile.Store, obs observe.Observer, bufSize int) *FeedbackCollector {
	if bufSize <= 0 {
		bufSize = 1024
	}
	if obs == nil {
		obs = observe.Nop{}
	}
	c := &FeedbackCollector{
		profiles: profiles,
		observer: obs,
		events:   make(chan FeedbackEvent, bufSize),
		done:     make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *FeedbackCollector) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			// 收尾：把缓冲中剩余事件写完
			for {
				select {
				case ev := <-c.events:
					c.apply(ev)
				default:
					return
				}
			}
		case ev := <-c.events:
			c.apply(ev)
		}
	}
}

func (c *FeedbackCollector) apply(ev FeedbackEvent) {
	in := core.Interaction{
		Action:    ev.Action,
		ItemID:    ev.ItemID,
		Context:   ev.Context,
		Timestamp: ev.Timestamp,
	}
	// 画像写入失败只影响该条反馈，不影响任何读请求
	_ = c.profiles.Append(context.Background(), ev.UserID, in)
}

// Submit 投递一条反馈事件，永不阻塞。
func (c *FeedbackCollector) Submit(ev FeedbackEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case c.events <- ev:
	default:
		c.observer.FeedbackDropped()
	}
}

// Close 停止消费并冲刷缓冲。
func (c *FeedbackCollector) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}
