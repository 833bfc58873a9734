package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type Producer interface {
	SendJobMessage(ctx context.Context, topic string, message *JobMessage) error
	Close() error
}

// JobMessage is the descriptor carried on the topic. Payload holds the raw
// upload bytes so the worker never reads from shared disk.
type JobMessage struct {
	JobID    string `json:"job_id"`
	TraceID  string `json:"trace_id"`
	Filename string `json:"filename"`
	Payload  []byte `json:"payload"`
}

type producer struct {
	producer sarama.SyncProducer
}

// DescriptorSizeLimit returns the broker message ceiling for a given raw
// payload cap. encoding/json base64-encodes Payload at 4 output bytes per 3
// input bytes, so the limit must be sized to the encoded form; the fixed
// slack covers the remaining descriptor fields and protocol framing.
func DescriptorSizeLimit(maxPayload int64) int {
	encoded := (maxPayload + 2) / 3 * 4
	return int(encoded) + (256 << 10)
}

func NewProducer(brokers []string, maxMessageBytes int) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	if maxMessageBytes > 0 {
		config.Producer.MaxMessageBytes = maxMessageBytes
	}

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &producer{producer: p}, nil
}

func (p *producer) SendJobMessage(ctx context.Context, topic string, message *JobMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(message.JobID),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	return err
}

func (p *producer) Close() error {
	return p.producer.Close()
}
