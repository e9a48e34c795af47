package queue

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nsqio/go-nsq"
)

type Publisher interface {
	Publish(topic string, body []byte) error
}

// NSQPublisher pushes job payloads onto one NSQ topic.
type NSQPublisher struct {
	producer Publisher
	topic    string
}

func NewNSQPublisher(producer Publisher, topic string) *NSQPublisher {
	return &NSQPublisher{producer: producer, topic: topic}
}

func (p *NSQPublisher) Push(ctx context.Context, payload []byte) error {
	return p.producer.Publish(p.topic, payload)
}

// NewNSQConsumer subscribes handler to topic/channel with one message in flight,
// which keeps job processing sequential.
func NewNSQConsumer(topic, channel, lookupd string, handler nsq.Handler) (*nsq.Consumer, error) {
	cfg := nsq.NewConfig()
	cfg.MaxInFlight = 1

	consumer, err := nsq.NewConsumer(topic, channel, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsq consumer error: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelWarning)
	consumer.AddHandler(handler)

	if err := consumer.ConnectToNSQLookupd(lookupd); err != nil {
		consumer.Stop()
		return nil, fmt.Errorf("failed to connect to NSQLookupd: %w", err)
	}
	return consumer, nil
}

// CreateTopic asks nsqd to create topic up front; lookupd answers 404 for
// topics nobody has published to yet.
func CreateTopic(ctx context.Context, nsqdHTTP, topic string) error {
	url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTP, topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req) // #nosec G107 -- URL is built from internal NSQ config, not user input
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nsqd topic create returned %d", resp.StatusCode)
	}
	slog.InfoContext(ctx, "nsq topic ready", "topic", topic)
	return nil
}
