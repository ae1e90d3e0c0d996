package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dafibh/fintrack/fintrack-backend/internal/event"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	kinds      []string
	messages   []published
	declareErr error
	publishErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	f.kinds = append(f.kinds, kind)
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.messages = append(f.messages, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPublisher_DeclaresTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "fintrack.events")
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []string{"fintrack.events"}, ch.declared)
	assert.Equal(t, []string{"topic"}, ch.kinds)
}

func TestPublisher_DeclareFailure(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newPublisher(ch, "fintrack.events")
	require.Error(t, err)
	assert.True(t, ch.closed)
}

func TestPublisher_RoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(ch, "fintrack.events")
	require.NoError(t, err)

	p.Publish(event.TransactionCreated(map[string]interface{}{"id": 1}))
	p.Publish(event.CategoryDeleted(map[string]interface{}{"id": 2}, true))
	require.NoError(t, p.Close())

	require.Len(t, ch.messages, 2)
	assert.Equal(t, "transaction.created", ch.messages[0].key)
	assert.Equal(t, "category.soft_deleted", ch.messages[1].key)
	assert.Equal(t, "fintrack.events", ch.messages[0].exchange)
	assert.Equal(t, "application/json", ch.messages[0].msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.messages[0].msg.DeliveryMode)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(ch.messages[0].msg.Body, &body))
	assert.Equal(t, "transaction.created", body["type"])
	assert.True(t, ch.closed)
}

func TestPublisher_PublishErrorIsSwallowed(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := newPublisher(ch, "fintrack.events")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		p.Publish(event.TransactionDeleted(nil))
	})
	require.NoError(t, p.Close())
	assert.Empty(t, ch.messages)
}

func TestPublisher_CloseIsIdempotent(t *testing.T) {
	p, err := newPublisher(&fakeChannel{}, "fintrack.events")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
