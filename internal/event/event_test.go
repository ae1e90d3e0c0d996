package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	payload := map[string]interface{}{"id": 1, "name": "Food"}

	before := time.Now()
	evt := New(ActionCreated, EntityCategory, payload)
	after := time.Now()

	assert.Equal(t, "category.created", evt.Type)
	assert.Equal(t, EntityCategory, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEventConstructors(t *testing.T) {
	tests := []struct {
		name     string
		evt      Event
		expected string
	}{
		{"category created", CategoryCreated(nil), "category.created"},
		{"category updated", CategoryUpdated(nil), "category.updated"},
		{"category hard deleted", CategoryDeleted(nil, false), "category.deleted"},
		{"category soft deleted", CategoryDeleted(nil, true), "category.soft_deleted"},
		{"transaction created", TransactionCreated(nil), "transaction.created"},
		{"transaction updated", TransactionUpdated(nil), "transaction.updated"},
		{"transaction deleted", TransactionDeleted(nil), "transaction.deleted"},
		{"transactions imported", TransactionsImported(nil), "transaction.imported"},
		{"report archived", ReportArchived(nil), "report.archived"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.evt.Type)
		})
	}
}

func TestEvent_ToJSON(t *testing.T) {
	evt := Event{
		Type:      "transaction.deleted",
		Entity:    EntityTransaction,
		Payload:   map[string]interface{}{"id": float64(7)},
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
	}

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "transaction.deleted", decoded["type"])
	assert.Equal(t, "transaction", decoded["entity"])
	assert.Equal(t, "2025-01-15T10:30:00Z", decoded["timestamp"])
	assert.Equal(t, float64(7), decoded["payload"].(map[string]interface{})["id"])
}

type recorder struct {
	types []string
}

func (r *recorder) Publish(e Event) {
	r.types = append(r.types, e.Type)
}

func TestMultiPublisher(t *testing.T) {
	first := &recorder{}
	second := &recorder{}
	multi := MultiPublisher{first, nil, second}

	multi.Publish(CategoryCreated(nil))
	multi.Publish(TransactionDeleted(nil))

	assert.Equal(t, []string{"category.created", "transaction.deleted"}, first.types)
	assert.Equal(t, first.types, second.types)
}

func TestNoOpPublisher(t *testing.T) {
	var p Publisher = NoOpPublisher{}
	assert.NotPanics(t, func() {
		p.Publish(CategoryCreated(nil))
	})
}
