package eventbus

import (
	"context"
	"log"
	"sync"

	"github.com/JoeShih716/go-mem-finance/internal/app/core/domain"
	"github.com/JoeShih716/go-mem-finance/internal/app/core/usecase"
)

// DefaultCapacity outbox 預設保留的事件數
const DefaultCapacity = 1024

type subscription struct {
	owner string // 空字串代表訂閱全部帳戶
	ch    chan domain.Event
}

// Bus 行程內的事件輸出佇列
// 保留最近 capacity 筆事件供查詢，並即時分送給訂閱者
type Bus struct {
	mu       sync.Mutex
	outbox   []domain.Event
	capacity int
	subs     map[int]*subscription
	nextID   int
	// dropped 因訂閱者來不及消化而丟棄的事件數
	dropped uint64
}

func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		outbox:   make([]domain.Event, 0, capacity),
		capacity: capacity,
		subs:     make(map[int]*subscription),
	}
}

// Publish 加入 outbox 並分送；訂閱者緩衝已滿時丟棄該筆並記錄
func (b *Bus) Publish(ctx context.Context, events []domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range events {
		if len(b.outbox) == b.capacity {
			copy(b.outbox, b.outbox[1:])
			b.outbox = b.outbox[:len(b.outbox)-1]
		}
		b.outbox = append(b.outbox, ev)

		for id, sub := range b.subs {
			if sub.owner != "" && sub.owner != ev.Owner {
				continue
			}
			select {
			case sub.ch <- ev:
			default:
				b.dropped++
				log.Printf("eventbus: subscriber %d is full, dropped %s seq %d for %s", id, ev.Name, ev.Sequence, ev.Owner)
			}
		}
	}
	return nil
}

// Subscribe 訂閱事件，owner 為空時接收所有帳戶
//
// 回傳:
//
//	<-chan domain.Event: 事件 channel，取消訂閱後關閉
//	func(): 取消訂閱
func (b *Bus) Subscribe(owner string, buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscription{owner: owner, ch: make(chan domain.Event, buffer)}
	b.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Recent 回傳 outbox 中指定帳戶最近的事件 (舊到新)，limit<=0 代表全部
func (b *Bus) Recent(owner string, limit int) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for i := len(b.outbox) - 1; i >= 0; i-- {
		if owner != "" && b.outbox[i].Owner != owner {
			continue
		}
		out = append(out, b.outbox[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Dropped 回傳累計丟棄的事件數
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

var _ usecase.EventPublisher = (*Bus)(nil)
