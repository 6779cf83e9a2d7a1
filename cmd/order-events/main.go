// Команда order-events читает ограниченное окно топика событий заказов,
// печатает order.created и при -forward-to переотправляет их в другой топик.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/messaging/kafka"
)

const (
	defaultScanLimit   = 100
	defaultIdleTimeout = 2 * time.Second
)

type config struct {
	brokers     []string
	topic       string
	forwardTo   string
	userID      string
	limit       int
	fromNewest  bool
	idleTimeout time.Duration
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type forwardProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	if a.consumer == nil {
		return nil
	}
	return a.consumer.Close()
}

var newScanDependencies = func(cfg config) (offsetClient, partitionConsumerSource, forwardProducer, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "order-events"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create kafka client: %w", err)
	}

	rawConsumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	consumer := saramaConsumerAdapter{consumer: rawConsumer}

	if cfg.forwardTo == "" {
		return client, consumer, nil, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.ClientID = "order-events"
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.brokers, producerConfig)
	if err != nil {
		_ = consumer.Close()
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return client, consumer, producer, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	cfg, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, cfg, os.Stdout); err != nil {
		fail("order events scan failed: %v", err)
	}
}

func parseConfig(args []string, getenv func(string) string) (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	fs := flag.NewFlagSet("order-events", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	fs.StringVar(&cfg.topic, "topic", kafka.TopicOrderEvents, "order events topic")
	fs.StringVar(&cfg.forwardTo, "forward-to", "", "forward matched events to this topic; empty means read-only")
	fs.StringVar(&cfg.userID, "user", "", "only events of this user")
	fs.IntVar(&cfg.limit, "limit", defaultScanLimit, "max number of messages to scan")
	fs.BoolVar(&cfg.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	fs.DurationVar(&cfg.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv("KAFKA_BROKERS")
	}

	cfg.brokers = parseBrokers(brokersRaw)
	cfg.topic = strings.TrimSpace(cfg.topic)
	cfg.forwardTo = strings.TrimSpace(cfg.forwardTo)

	switch {
	case len(cfg.brokers) == 0:
		return config{}, errors.New("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case cfg.topic == "":
		return config{}, errors.New("topic is required")
	case cfg.forwardTo == cfg.topic:
		return config{}, errors.New("forward-to must differ from topic")
	case cfg.limit <= 0:
		return config{}, errors.New("limit must be > 0")
	case cfg.idleTimeout <= 0:
		return config{}, errors.New("idle-timeout must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

type scanStats struct {
	processed int
	matched   int
	forwarded int
	skipped   int
}

func (s *scanStats) add(other scanStats) {
	s.processed += other.processed
	s.matched += other.matched
	s.forwarded += other.forwarded
	s.skipped += other.skipped
}

func run(ctx context.Context, cfg config, out io.Writer) (scanStats, error) {
	log.WithFields(log.Fields{
		"topic":       cfg.topic,
		"forward_to":  cfg.forwardTo,
		"limit":       cfg.limit,
		"from_newest": cfg.fromNewest,
	}).Info("starting order events scan")

	client, consumer, producer, err := newScanDependencies(cfg)
	if err != nil {
		return scanStats{}, err
	}
	defer func() {
		if producer != nil {
			_ = producer.Close()
		}
		if consumer != nil {
			_ = consumer.Close()
		}
		if client != nil {
			_ = client.Close()
		}
	}()

	return runScan(ctx, cfg, client, consumer, producer, out)
}

func runScan(ctx context.Context, cfg config, client offsetClient, consumer partitionConsumerSource, producer forwardProducer, out io.Writer) (scanStats, error) {
	var total scanStats
	if client == nil || consumer == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if cfg.forwardTo != "" && producer == nil {
		return total, errors.New("producer is required to forward events")
	}

	partitions, err := client.Partitions(cfg.topic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", cfg.topic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", cfg.topic).Warn("topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	scanner := eventScanner{cfg: cfg, client: client, consumer: consumer, producer: producer, out: newEncoder(out)}
	for _, partition := range partitions {
		if total.processed >= cfg.limit {
			break
		}

		stats, err := scanner.scanPartition(ctx, partition, cfg.limit-total.processed)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}

	log.WithFields(log.Fields{
		"processed": total.processed,
		"matched":   total.matched,
		"forwarded": total.forwarded,
		"skipped":   total.skipped,
	}).Info("order events scan finished")

	return total, nil
}

type eventScanner struct {
	cfg      config
	client   offsetClient
	consumer partitionConsumerSource
	producer forwardProducer
	out      *json.Encoder
}

// newEncoder пишет по одному событию на строку.
func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (s eventScanner) scanPartition(ctx context.Context, partition int32, limit int) (scanStats, error) {
	var stats scanStats
	if limit <= 0 {
		return stats, nil
	}

	oldest, err := s.client.GetOffset(s.cfg.topic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := s.client.GetOffset(s.cfg.topic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if s.cfg.fromNewest {
		startOffset = max(newest-int64(limit), oldest)
	}

	pc, err := s.consumer.ConsumePartition(s.cfg.topic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(s.cfg.idleTimeout)
	defer idleTimer.Stop()

	errs, messages := pc.Errors(), pc.Messages()
	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case err, ok := <-errs:
			if !ok {
				// закрытый канал ошибок больше не выбираем, сообщения дочитываются
				errs = nil
				continue
			}
			if err != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-messages:
			if !ok || msg == nil {
				return stats, nil
			}
			idleTimer.Reset(s.cfg.idleTimeout)

			if msg.Offset >= newest {
				return stats, nil
			}
			stats.processed++

			if err := s.handle(msg, &stats); err != nil {
				return stats, err
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

func (s eventScanner) handle(msg *sarama.ConsumerMessage, stats *scanStats) error {
	event, err := kafka.DecodeOrderCreatedEvent(msg.Value)
	if err != nil {
		stats.skipped++
		log.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Debug("skip message")
		return nil
	}
	if s.cfg.userID != "" && event.UserID != s.cfg.userID {
		return nil
	}

	stats.matched++
	if err := s.out.Encode(event); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	if s.cfg.forwardTo == "" {
		return nil
	}
	if err := forward(s.producer, s.cfg.forwardTo, msg); err != nil {
		return fmt.Errorf("forward order %s: %w", event.OrderID, err)
	}
	stats.forwarded++
	return nil
}

func forward(producer forwardProducer, topic string, msg *sarama.ConsumerMessage) error {
	if producer == nil {
		return errors.New("producer is nil")
	}

	_, _, err := producer.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.ByteEncoder(msg.Key),
		Value:     sarama.ByteEncoder(msg.Value),
		Timestamp: time.Now().UTC(),
	})
	return err
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
