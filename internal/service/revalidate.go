package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/totegamma/portfolio"
)

const revalidateTimeout = 5 * time.Second

// Revalidator asks the frontend to rebuild its static pages after a change.
type Revalidator struct {
	url    string
	secret string
	client *http.Client
	wg     sync.WaitGroup
}

func NewRevalidator(url, secret string) *Revalidator {
	return &Revalidator{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: revalidateTimeout},
	}
}

// Notify fires the revalidation request in the background.
func (r *Revalidator) Notify(ctx context.Context, event portfolio.Event) {
	if r.url == "" {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revalidateTimeout)
		defer cancel()
		if err := r.trigger(ctx, event); err != nil {
			zap.L().Warn("revalidation failed", zap.String("resource", event.Resource), zap.Error(err))
			return
		}
		zap.L().Debug("revalidation triggered", zap.String("resource", event.Resource))
	}()
}

// Wait blocks until every in-flight request has finished.
func (r *Revalidator) Wait() {
	r.wg.Wait()
}

func (r *Revalidator) trigger(ctx context.Context, event portfolio.Event) error {
	payload, err := json.Marshal(map[string]string{
		"secret":   r.secret,
		"resource": event.Resource,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revalidation failed with status code: %d", resp.StatusCode)
	}
	return nil
}

// Notifiers fans an event out to every member.
type Notifiers []interface {
	Notify(ctx context.Context, event portfolio.Event)
}

func (n Notifiers) Notify(ctx context.Context, event portfolio.Event) {
	for _, notifier := range n {
		notifier.Notify(ctx, event)
	}
}
