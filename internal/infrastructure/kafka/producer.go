package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/manvue/go-backend/internal/cfg"
	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/logger"
	"github.com/segmentio/kafka-go"
)

// Producer публикует события визуальных запросов в поток аналитики.
// События — JSON: его читают и пайплайны аналитики, и люди при разборе
// инцидентов.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    10,
		BatchTimeout: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// queryEvent — событие визуального запроса в топике аналитики.
type queryEvent struct {
	EventID         string                `json:"event_id"`
	EventTimestamp  int64                 `json:"event_timestamp"`
	QueryID         string                `json:"query_id"`
	Username        string                `json:"username,omitempty"`
	UploadedFileRef string                `json:"uploaded_file_ref,omitempty"`
	Results         []domain.LoggedResult `json:"results"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Publish отправляет событие запроса. Ключ — query_id: все события одного
// запроса попадают в одну партицию.
func (p *Producer) Publish(ctx context.Context, entry *domain.QueryLogEntry) error {
	value, err := json.Marshal(queryEvent{
		EventID:         uuid.NewString(),
		EventTimestamp:  time.Now().UnixNano(),
		QueryID:         entry.QueryID,
		Username:        entry.Username,
		UploadedFileRef: entry.UploadedFileRef,
		Results:         entry.Results,
		CreatedAt:       entry.CreatedAt,
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.QueryID),
		Value: value,
	})
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
