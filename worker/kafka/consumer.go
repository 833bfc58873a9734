package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
)

type MessageHandler func(ctx context.Context, msg *JobMessage) error

// JobMessage mirrors the descriptor the API producer writes to the topic.
type JobMessage struct {
	JobID    string `json:"job_id"`
	TraceID  string `json:"trace_id"`
	Filename string `json:"filename"`
	Payload  []byte `json:"payload"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
}

// DescriptorSizeLimit mirrors the producer side: the fetch ceiling must
// cover the base64-inflated payload plus descriptor fields and framing.
func DescriptorSizeLimit(maxPayload int64) int {
	encoded := (maxPayload + 2) / 3 * 4
	return int(encoded) + (256 << 10)
}

func NewConsumer(brokers []string, groupID string, maxMessageBytes int) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	if maxMessageBytes > 0 {
		config.Consumer.Fetch.Max = int32(maxMessageBytes)
	}

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c}, nil
}

type consumerHandler struct {
	fn  MessageHandler
	ctx context.Context
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks a message only after the handler settles it. On an
// infrastructure error it returns immediately: offset commits are high-water
// marks, so marking any later message would commit past the unsettled one
// and lose it. Aborting the session resumes from the last committed offset,
// redelivering the failed descriptor (at-least-once).
func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var jobMsg JobMessage
		if err := json.Unmarshal(msg.Value, &jobMsg); err != nil {
			// Malformed descriptors can never succeed; drop them.
			session.MarkMessage(msg, "")
			continue
		}
		if err := h.fn(h.ctx, &jobMsg); err != nil {
			return err
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx}
	return c.consumer.Consume(ctx, []string{topic}, h)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
