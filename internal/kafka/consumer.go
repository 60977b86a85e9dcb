package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// MessageHandler is called with the raw value of every consumed message
type MessageHandler func(ctx context.Context, value []byte) error

const defaultRetryBackoff = 5 * time.Second

var errSessionEnded = errors.New("consumer group session ended before setup")

// Consumer wraps a Sarama consumer group reading raw webhook payloads
type Consumer struct {
	client       sarama.ConsumerGroup
	topic        string
	handler      MessageHandler
	logger       zerolog.Logger
	retryBackoff time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, groupID, topic string, logger zerolog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_8_0_0

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}
	return NewConsumerWith(client, topic, logger), nil
}

// NewConsumerWith wraps an existing consumer group
func NewConsumerWith(client sarama.ConsumerGroup, topic string, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:       client,
		topic:        topic,
		logger:       logger.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
		retryBackoff: defaultRetryBackoff,
	}
}

// SetHandler sets the handler for signal messages
func (c *Consumer) SetHandler(handler MessageHandler) {
	c.handler = handler
}

// Start begins consuming and returns once the first session is set up. If
// the first Consume call fails before that, Start stops the consumer and
// returns the error.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	ready := make(chan bool)
	failed := make(chan error, 1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, ready, failed)
	}()

	select {
	case <-ready:
	case err := <-failed:
		c.cancel()
		c.wg.Wait()
		return fmt.Errorf("kafka consumer failed to start: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
	c.logger.Info().Msg("kafka consumer started and ready")
	return nil
}

// consume runs consumer group sessions until ctx is done. ready is closed
// by the first session's Setup; later sessions get their own channel.
func (c *Consumer) consume(ctx context.Context, ready chan bool, failed chan<- error) {
	started := false
	for {
		handler := &consumerGroupHandler{
			consumer: c,
			ready:    ready,
		}
		err := c.client.Consume(ctx, []string{c.topic}, handler)
		if ctx.Err() != nil {
			return
		}

		if !started {
			select {
			case <-ready:
				started = true
			default:
			}
		}
		if !started {
			if err == nil {
				err = errSessionEnded
			}
			failed <- err
			return
		}
		ready = make(chan bool)

		if err != nil {
			c.logger.Error().Err(err).Dur("backoff", c.retryBackoff).Msg("consumer error, retrying")
			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops the consumer gracefully
func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.client.Close()
}

// handle passes one message to the handler. Handler errors are logged and the
// message is still marked: a rejected signal is never redelivered.
func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) {
	if c.handler == nil {
		return
	}
	if err := c.handler(ctx, message.Value); err != nil {
		c.logger.Warn().
			Err(err).
			Int32("partition", message.Partition).
			Int64("offset", message.Offset).
			Msg("failed to handle signal message")
	}
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    chan bool
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.consumer.handle(session.Context(), message)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
