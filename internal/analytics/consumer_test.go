package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/speedbump/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgChan chan *message.Message
	mu      sync.Mutex
	closed  bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgChan: make(chan *message.Message, 10)}
}

func (m *mockSubscriber) Subscribe(_ context.Context, topic string) (<-chan *message.Message, error) {
	if topic != analytics.TopicDecided {
		return nil, errors.New("unknown topic")
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

type mockStore struct {
	events  []*analytics.DecisionEvent
	saveErr error
	mu      sync.Mutex
}

func (m *mockStore) SaveDecision(_ context.Context, event *analytics.DecisionEvent) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return nil
}

func (m *mockStore) saved() []*analytics.DecisionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*analytics.DecisionEvent(nil), m.events...)
}

func TestDecisionHandler(t *testing.T) {
	t.Run("saves the event", func(t *testing.T) {
		store := &mockStore{}
		handle := analytics.NewDecisionHandler(store)

		err := handle(context.Background(), &analytics.DecisionEvent{ID: "evt-1", Key: "client-a"})

		require.NoError(t, err)
		require.Len(t, store.saved(), 1)
		assert.Equal(t, "client-a", store.saved()[0].Key)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		storeErr := errors.New("disk full")
		handle := analytics.NewDecisionHandler(&mockStore{saveErr: storeErr})

		err := handle(context.Background(), &analytics.DecisionEvent{ID: "evt-1"})

		require.ErrorIs(t, err, storeErr)
		assert.Contains(t, err.Error(), "evt-1")
	})
}

func TestDecisionConsumer(t *testing.T) {
	t.Run("consumes decisions into the store", func(t *testing.T) {
		sub := newMockSubscriber()
		store := &mockStore{}
		consumer := analytics.NewDecisionConsumer(sub, store, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, analytics.TopicDecided, consumer.Topic())

		payload, _ := json.Marshal(&analytics.DecisionEvent{ID: "evt-1", Key: "client-a", Allowed: true})
		msg := message.NewMessage(uuid.NewString(), payload)

		sub.msgChan <- msg

		select {
		case <-msg.Acked():
			require.Len(t, store.saved(), 1)
			assert.True(t, store.saved()[0].Allowed)
		case <-msg.Nacked():
			t.Fatal("message was nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for ack")
		}

		_ = consumer.Shutdown()
	})

	t.Run("nacks when the store fails", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := analytics.NewDecisionConsumer(sub, &mockStore{saveErr: errors.New("down")}, zap.NewNop())

		require.NoError(t, consumer.Start(context.Background()))

		payload, _ := json.Marshal(&analytics.DecisionEvent{ID: "evt-2"})
		msg := message.NewMessage(uuid.NewString(), payload)

		sub.msgChan <- msg

		select {
		case <-msg.Nacked():
			// Success
		case <-msg.Acked():
			t.Fatal("message should have been nacked")
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for nack")
		}

		_ = consumer.Shutdown()
	})
}
