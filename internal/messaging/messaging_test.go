package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(fw, zap.NewNop())

	event := NewEvent(EventDocumentIssued, "SHP-2025-001", map[string]string{"docType": "MBL"})
	require.NoError(t, p.Publish(context.Background(), event.Key, event))

	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "SHP-2025-001", string(fw.msgs[0].Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &decoded))
	assert.Equal(t, EventDocumentIssued, decoded.Type)
	assert.Equal(t, "SHP-2025-001", decoded.Key)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(fw, zap.NewNop())

	err := p.Publish(context.Background(), "k", map[string]int{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewRabbitPublisherWithChannel(ch, "fms.notifications", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"fms.notifications"}, ch.declared)

	require.NoError(t, p.Publish(context.Background(), "ARN-2025-001", NewEvent(EventArrivalNotice, "ARN-2025-001", nil)))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "fms.notifications", ch.keys[0])
	assert.Equal(t, "ARN-2025-001", ch.published[0].MessageId)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.published[0].ContentType)
}

func TestNew_SelectsDriver(t *testing.T) {
	p, err := New(&config.MessagingConfig{Driver: "none"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &NoopPublisher{}, p)

	p, err = New(&config.MessagingConfig{Driver: "kafka", Brokers: []string{"localhost:9092"}, Topic: "fms.events"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &KafkaPublisher{}, p)

	_, err = New(&config.MessagingConfig{Driver: "kafka"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(&config.MessagingConfig{Driver: "smtp"}, zap.NewNop())
	assert.Error(t, err)
}
