package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecord struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAcker struct {
	mu   sync.Mutex
	acks []ackRecord
}

func (f *fakeAcker) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ackRecord{tag: tag, acked: true})
	return nil
}

func (f *fakeAcker) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (f *fakeAcker) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcker) byTag() map[uint64]ackRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint64]ackRecord, len(f.acks))
	for _, a := range f.acks {
		out[a.tag] = a
	}
	return out
}

type fakeConsumeChannel struct {
	deliveries chan amqp.Delivery
	prefetch   int
}

func (f *fakeConsumeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	f.prefetch = prefetchCount
	return nil
}

func (f *fakeConsumeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeConsumeChannel) Close() error { return nil }

func TestAMQPConsumerAcksNacksAndDrops(t *testing.T) {
	acker := &fakeAcker{}
	ch := &fakeConsumeChannel{deliveries: make(chan amqp.Delivery, 4)}
	good, _ := EncodeMessage(NewMessage("ok", "r1"))
	bad, _ := EncodeMessage(NewMessage("boom", "r2"))
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: good}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: []byte("{not json")}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 3, Body: bad}
	ch.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 4, Body: bad, Redelivered: true}
	close(ch.deliveries)

	c := &AMQPConsumer{ch: ch, queue: "analyses", concurrency: 2}
	err := c.Run(context.Background(), func(ctx context.Context, msg Message) error {
		if msg.AnalysisID == "boom" {
			return errors.New("processing failed")
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrConsumerClosed)
	assert.Equal(t, 2, ch.prefetch)

	acks := acker.byTag()
	require.Len(t, acks, 4)
	assert.True(t, acks[1].acked)
	assert.True(t, acks[2].acked, "undecodable messages are dropped")
	assert.False(t, acks[3].acked)
	assert.True(t, acks[3].requeue, "first failure is requeued")
	assert.False(t, acks[4].acked)
	assert.False(t, acks[4].requeue, "redelivered failure is dropped")
}

func TestAMQPConsumerStopsOnCancel(t *testing.T) {
	ch := &fakeConsumeChannel{deliveries: make(chan amqp.Delivery)}
	c := &AMQPConsumer{ch: ch, queue: "analyses", concurrency: 1}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, func(context.Context, Message) error { return nil }) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type fakePublishChannel struct {
	key string
	msg amqp.Publishing
}

func (f *fakePublishChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.key = key
	f.msg = msg
	return nil
}

func (f *fakePublishChannel) Close() error { return nil }

func TestAMQPClientPublishesPersistentMessage(t *testing.T) {
	ch := &fakePublishChannel{}
	c := &AMQPClient{ch: ch, queue: "analyses"}
	require.NoError(t, c.Send(context.Background(), NewMessage("a-1", "r-1")))
	assert.Equal(t, "analyses", ch.key)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	msg, err := DecodeMessage(ch.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, "a-1", msg.AnalysisID)
}

func TestInlineClientRunsHandler(t *testing.T) {
	got := make(chan string, 1)
	c := NewInlineClient(func(ctx context.Context, msg Message) error {
		got <- msg.AnalysisID
		return errors.New("logged, not returned")
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Send(ctx, NewMessage("a-1", "")))
	cancel()
	require.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, "a-1", <-got)
}

type fakeSQSSender struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQSSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSClientSend(t *testing.T) {
	sender := &fakeSQSSender{}
	c := &SQSClient{client: sender, queueURL: "https://sqs.example/queue"}
	require.NoError(t, c.Send(context.Background(), NewMessage("a-1", "r-1")))
	assert.Equal(t, "https://sqs.example/queue", aws.ToString(sender.input.QueueUrl))
	assert.Contains(t, aws.ToString(sender.input.MessageBody), `"analysisId":"a-1"`)
}
