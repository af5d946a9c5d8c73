package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
)

const subscriberBuffer = 16

// Broker fans events out to in-process subscribers. It stands in for
// SignalService when no redis is configured.
type Broker struct {
	mu   sync.Mutex
	subs map[chan portfolio.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[chan portfolio.Event]struct{}{}}
}

// Notify never blocks; a subscriber whose buffer is full misses the event.
func (b *Broker) Notify(ctx context.Context, event portfolio.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			zap.L().Debug("dropping event for slow subscriber", zap.String("resource", event.Resource))
		}
	}
}

func (b *Broker) Subscribe(ctx context.Context) (<-chan portfolio.Event, error) {
	ch := make(chan portfolio.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}
