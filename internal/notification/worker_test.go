package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"

	"winery-tank-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	mu                       sync.Mutex
	SubscriptionsForTankFunc func(ctx context.Context, depositID int64) ([]model.PushSubscription, error)
	deleted                  []string
}

func (m *mockStore) AddShipment(context.Context, *model.Shipment) error { return nil }
func (m *mockStore) ListShipments(context.Context, string) ([]model.Shipment, error) {
	return nil, nil
}
func (m *mockStore) ClearShipments(context.Context, string) (int64, error) { return 0, nil }
func (m *mockStore) PutSubscription(context.Context, model.PushSubscription, []int64) error {
	return nil
}
func (m *mockStore) GetSubscribedTanks(context.Context, string) ([]int64, error) { return nil, nil }

func (m *mockStore) DeleteSubscription(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func (m *mockStore) SubscriptionsForTank(ctx context.Context, depositID int64) ([]model.PushSubscription, error) {
	return m.SubscriptionsForTankFunc(ctx, depositID)
}

func (m *mockStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func okResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, &webpush.Options{})

	assert.True(t, wp.Dispatch(context.Background(), Job{DepositID: 123, Title: "Tanque 123"}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, Job{DepositID: 123, Title: "Tanque 123"}, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DispatchNeverBlocks(t *testing.T) {
	wp := NewWorkerPool(1, &mockStore{}, &webpush.Options{})

	done := make(chan int, 1)
	go func() {
		queued := 0
		for i := 0; i < cap(wp.jobs)+5; i++ {
			if wp.Dispatch(context.Background(), Job{DepositID: int64(i)}) {
				queued++
			}
		}
		done <- queued
	}()

	select {
	case queued := <-done:
		assert.Equal(t, cap(wp.jobs), queued, "jobs beyond the queue size are dropped")
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for len(wp.jobs) > 0 {
		<-wp.jobs
	}
	assert.False(t, wp.Dispatch(ctx, Job{DepositID: 1}), "no jobs are queued after shutdown")
	assert.Len(t, wp.jobs, 0)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Tanque Inox 3 está disponível!", Message(Job{DepositID: 3, Title: "Inox 3"}))
	assert.Equal(t, "Tanque 3 está disponível!", Message(Job{DepositID: 3}))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	subs := map[int64][]model.PushSubscription{
		101: {{Endpoint: "https://example.com/push", P256DH: "test_p256dh", Auth: "test_auth"}},
		102: {{Endpoint: "https://example.com/expired", P256DH: "p", Auth: "a"}},
	}
	ms := &mockStore{
		SubscriptionsForTankFunc: func(_ context.Context, depositID int64) ([]model.PushSubscription, error) {
			if depositID == 999 {
				return nil, errors.New("db down")
			}
			return subs[depositID], nil
		},
	}
	wp := NewWorkerPool(1, ms, &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification for one subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(1)

		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
				assert.Equal(t, "Tanque Inox 1 está disponível!", string(payload))
				wg.Done()
				return okResponse(http.StatusCreated), nil
			},
		}

		wp.Dispatch(ctx, Job{DepositID: 101, Title: "Inox 1"})
		wg.Wait()
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return okResponse(http.StatusGone), nil
			},
		}

		wp.Dispatch(ctx, Job{DepositID: 102, Title: "Inox 2"})

		assert.Eventually(t, func() bool {
			return len(ms.Deleted()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"https://example.com/expired"}, ms.Deleted())
	})

	t.Run("store failure sends nothing", func(t *testing.T) {
		sent := make(chan struct{}, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				sent <- struct{}{}
				return okResponse(http.StatusCreated), nil
			},
		}

		wp.Dispatch(ctx, Job{DepositID: 999})
		// A follow-up job proves the worker moved past the failing one.
		wp.Dispatch(ctx, Job{DepositID: 101, Title: "Inox 1"})

		select {
		case <-sent:
		case <-time.After(time.Second):
			t.Fatal("worker stalled after store failure")
		}
		assert.Len(t, sent, 0)
	})
}
