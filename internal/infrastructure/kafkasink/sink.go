package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/fulfillment"
	domoutbox "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const (
	sinkPeer      = "kafka"
	headerEvent   = "event"
	componentSink = "kafka_sink"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a kafka-go writer tuned for low latency.
func NewWriter(cfg Config) *kafka.Writer {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		BatchSize:              100,
		AllowAutoTopicCreation: true,
	}
}

// Sink forwards finished attempts to Kafka, keyed by attempt id.
type Sink struct {
	writer   MessageWriter
	endpoint string
	log      observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func New(writer MessageWriter, topic string, tel observability.Observability) *Sink {
	logger, _, metrics := observability.Resolve(tel)
	return &Sink{
		writer:       writer,
		endpoint:     topic,
		log:          logger.With(observability.F("component", componentSink)),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

func (s *Sink) Start(subscriber domoutbox.Subscriber) {
	if subscriber == nil || s.writer == nil {
		return
	}
	subscriber.Subscribe(domain.AttemptFinishedEvent{}.EventName(), s.Handle)
}

// Handle writes one message per AttemptFinishedEvent; other events are ignored.
func (s *Sink) Handle(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domain.AttemptFinishedEvent)
	if !ok {
		return nil
	}

	msg, err := encode(ctx, evt)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.writer.WriteMessages(ctx, msg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", sinkPeer),
		observability.L("endpoint", s.endpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", sinkPeer),
		observability.L("endpoint", s.endpoint),
	)
	if err != nil {
		return fmt.Errorf("kafkasink: write: %w", err)
	}

	logctx.FromOr(ctx, s.log).Debug("attempt_event_sent",
		observability.F("attempt_id", evt.Attempt.ID),
	)
	return nil
}

func (s *Sink) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

type stepMessage struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type attemptMessage struct {
	AttemptID  string        `json:"attempt_id"`
	ProductID  string        `json:"product_id"`
	Quantity   int           `json:"quantity"`
	Amount     string        `json:"amount"`
	Stage      string        `json:"stage"`
	Outcome    string        `json:"outcome,omitempty"`
	OrderID    string        `json:"order_id,omitempty"`
	PaymentID  string        `json:"payment_id,omitempty"`
	Steps      []stepMessage `json:"steps"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func encode(ctx context.Context, evt domain.AttemptFinishedEvent) (kafka.Message, error) {
	a := evt.Attempt
	body := attemptMessage{
		AttemptID:  a.ID,
		ProductID:  a.Request.ProductID,
		Quantity:   a.Request.Quantity,
		Amount:     a.Request.Amount.String(),
		Stage:      string(a.Stage),
		Outcome:    string(a.Outcome),
		OrderID:    a.OrderID,
		PaymentID:  a.PaymentID,
		Steps:      make([]stepMessage, 0, len(a.Steps)),
		Error:      a.Error,
		OccurredAt: evt.OccurredAt,
	}
	for _, st := range a.Steps {
		body.Steps = append(body.Steps, stepMessage{Name: string(st.Name), Status: string(st.Status), Error: st.Error})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkasink: encode: %w", err)
	}

	carrier := headerCarrier{{Key: headerEvent, Value: []byte(evt.EventName())}}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	return kafka.Message{
		Key:     []byte(a.ID),
		Value:   payload,
		Headers: carrier,
		Time:    evt.OccurredAt,
	}, nil
}

// headerCarrier lets the OTel propagator write trace context into Kafka headers.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
