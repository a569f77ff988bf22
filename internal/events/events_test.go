package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (f *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPPublisherRoutesByAnalysis(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{ch: ch, exchange: DefaultExchange}
	score := 71

	require.NoError(t, p.Publish(context.Background(), Event{AnalysisID: "a-1", UserID: "u-1", Status: "completed", Score: &score}))
	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, DefaultExchange, got.exchange)
	assert.Equal(t, "analysis.a-1", got.key)
	assert.Equal(t, uint8(amqp.Persistent), got.msg.DeliveryMode)
	assert.False(t, got.msg.Timestamp.IsZero())

	var ev Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &ev))
	assert.Equal(t, "completed", ev.Status)
	require.NotNil(t, ev.Score)
	assert.Equal(t, 71, *ev.Score)
}

func TestPublishBestEffortSwallowsErrors(t *testing.T) {
	p := &AMQPPublisher{ch: &fakeChannel{err: errors.New("channel closed")}, exchange: DefaultExchange}
	PublishBestEffort(context.Background(), p, Event{AnalysisID: "a-1", Status: "failed"})
	PublishBestEffort(context.Background(), nil, Event{AnalysisID: "a-1"})
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
