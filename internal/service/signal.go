package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
)

// SignalService broadcasts change events over redis pub/sub.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, channel string, event portfolio.Event) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, channel, jsonstr).Err()
	if err != nil {
		return err

	}

	return nil
}

// Notify publishes on the shared event channel. Failures are logged only;
// the mutation has already been committed.
func (s *SignalService) Notify(ctx context.Context, event portfolio.Event) {
	if err := s.Publish(context.WithoutCancel(ctx), domain.EventChannel, event); err != nil {
		zap.L().Warn("failed to publish event",
			zap.String("resource", event.Resource),
			zap.String("action", string(event.Action)),
			zap.Error(err),
		)
	}
}

// Subscribe streams events until ctx is done. The returned channel is closed
// when the subscription ends.
func (s *SignalService) Subscribe(ctx context.Context) (<-chan portfolio.Event, error) {
	pubsub := s.rdb.Subscribe(ctx, domain.EventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan portfolio.Event)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event portfolio.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					zap.L().Warn("dropping malformed event", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
