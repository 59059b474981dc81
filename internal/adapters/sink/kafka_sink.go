package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/ports"
)

// KafkaSink forwards messages to a back-office topic, keyed by peer id.
// Produce is asynchronous; delivery failures surface on the event loop.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	obs      ports.Observability
	produce  func(*kafka.Message) error
	done     chan struct{}
}

func NewKafkaSink(brokers, topic string, obs ports.Observability) (*KafkaSink, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"retries":           3,
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	k := &KafkaSink{
		producer: producer,
		topic:    topic,
		obs:      obs,
		done:     make(chan struct{}),
		produce: func(m *kafka.Message) error {
			return producer.Produce(m, nil)
		},
	}
	go k.watchDeliveries()
	return k, nil
}

func (k *KafkaSink) watchDeliveries() {
	defer close(k.done)
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			k.obs.IncCounter(ports.MetricSinkErrors, 1)
			k.obs.LogError("kafka_delivery_failed", m.TopicPartition.Error)
		}
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Accept(_ context.Context, msg domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return k.produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(msg.Peer.Hex()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
			{Key: "direction", Value: []byte(msg.Direction)},
		},
	})
}

func (k *KafkaSink) Close() error {
	if k.producer == nil {
		return nil
	}
	k.producer.Flush(5000)
	k.producer.Close()
	<-k.done
	return nil
}

var _ ports.TelemetrySink = (*KafkaSink)(nil)
