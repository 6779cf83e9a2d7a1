package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
)

const createdEvent = `{"event_type":"order.created","order_id":"ord-%d","user_id":"%s","status":"pending","items":[{"product_id":"prod-1","quantity":1}],"timestamp":"2026-03-01T10:00:00Z"}`

func eventMessage(partition int32, offset int64, user string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Partition: partition,
		Offset:    offset,
		Key:       []byte(fmt.Sprintf("ord-%d", offset)),
		Value:     []byte(fmt.Sprintf(createdEvent, offset, user)),
	}
}

func noEnv(string) string { return "" }

func TestParseBrokers(t *testing.T) {
	brokers := parseBrokers(" broker-1:9092, ,broker-2:9092 ")
	if len(brokers) != 2 {
		t.Fatalf("unexpected brokers count: got=%d want=2", len(brokers))
	}
	if brokers[0] != "broker-1:9092" || brokers[1] != "broker-2:9092" {
		t.Fatalf("unexpected brokers: %+v", brokers)
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig([]string{
		"-brokers=broker-1:9092,broker-2:9092",
		"-forward-to=oms.order.events.replay",
		"-user=user-1",
		"-limit=10",
		"-from-newest=true",
		"-idle-timeout=3s",
	}, noEnv)
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if len(cfg.brokers) != 2 || cfg.topic != "oms.order.events" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.forwardTo != "oms.order.events.replay" || cfg.userID != "user-1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.limit != 10 || !cfg.fromNewest || cfg.idleTimeout != 3*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestParseConfig_BrokersFromEnv(t *testing.T) {
	cfg, err := parseConfig(nil, func(key string) string {
		if key == "KAFKA_BROKERS" {
			return "kafka:9092"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}
	if len(cfg.brokers) != 1 || cfg.brokers[0] != "kafka:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.brokers)
	}
}

func TestParseConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"-brokers="}, want: "kafka brokers are required"},
		{args: []string{"-brokers=b:9092", "-topic= "}, want: "topic is required"},
		{args: []string{"-brokers=b:9092", "-forward-to=oms.order.events"}, want: "forward-to must differ"},
		{args: []string{"-brokers=b:9092", "-limit=0"}, want: "limit must be > 0"},
		{args: []string{"-brokers=b:9092", "-idle-timeout=0s"}, want: "idle-timeout must be > 0"},
		{args: []string{"-unknown"}, want: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			_, err := parseConfig(tt.args, noEnv)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q error, got %v", tt.want, err)
			}
		})
	}
}

func TestForward(t *testing.T) {
	msg := eventMessage(0, 1, "user-1")
	if err := forward(nil, "topic", msg); err == nil {
		t.Fatal("expected error for nil producer")
	}

	producer := &stubForwardProducer{}
	if err := forward(producer, "topic", msg); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	if producer.calls != 1 || producer.lastMsg.Topic != "topic" {
		t.Fatalf("unexpected producer state: calls=%d last=%+v", producer.calls, producer.lastMsg)
	}

	producer.sendErr = errors.New("send failed")
	if err := forward(producer, "topic", msg); err == nil {
		t.Fatal("expected forward error")
	}
}

func TestScanPartition_ReadOnly(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 3}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				eventMessage(0, 0, "user-1"),
				{Partition: 0, Offset: 1, Value: []byte(`{"event_type":"order.paid","order_id":"ord-1"}`)},
				eventMessage(0, 2, "user-2"),
			}),
		},
	}

	var out bytes.Buffer
	scanner := eventScanner{
		cfg:      config{topic: "oms.order.events", idleTimeout: 20 * time.Millisecond},
		client:   client,
		consumer: consumer,
		out:      newEncoder(&out),
	}
	stats, err := scanner.scanPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("scanPartition failed: %v", err)
	}
	if stats != (scanStats{processed: 3, matched: 2, skipped: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if lines := strings.Count(out.String(), "\n"); lines != 2 {
		t.Fatalf("expected two printed events, got %d: %s", lines, out.String())
	}
	if !strings.Contains(out.String(), `"order_id":"ord-2"`) {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestScanPartition_UserFilterAndForward(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{
				eventMessage(0, 0, "user-1"),
				eventMessage(0, 1, "user-2"),
			}),
		},
	}
	producer := &stubForwardProducer{}

	var out bytes.Buffer
	scanner := eventScanner{
		cfg:      config{topic: "oms.order.events", forwardTo: "replay", userID: "user-2", idleTimeout: 20 * time.Millisecond},
		client:   client,
		consumer: consumer,
		producer: producer,
		out:      newEncoder(&out),
	}
	stats, err := scanner.scanPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("scanPartition failed: %v", err)
	}
	if stats != (scanStats{processed: 2, matched: 1, forwarded: 1}) {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if producer.calls != 1 || string(producer.lastMsg.Key.(sarama.ByteEncoder)) != "ord-1" {
		t.Fatalf("unexpected forwarded message: %+v", producer.lastMsg)
	}
}

func TestScanPartition_FromNewestStartOffset(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 5, newest: 20}}}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{0: closedPartitionConsumer(nil)},
	}

	scanner := eventScanner{
		cfg:      config{topic: "oms.order.events", fromNewest: true, idleTimeout: 20 * time.Millisecond},
		client:   client,
		consumer: consumer,
		out:      newEncoder(&bytes.Buffer{}),
	}
	if _, err := scanner.scanPartition(context.Background(), 0, 4); err != nil {
		t.Fatalf("scanPartition failed: %v", err)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].offset != 16 {
		t.Fatalf("unexpected consume calls: %+v", consumer.calls)
	}
}

func TestScanPartition_ErrorBranches(t *testing.T) {
	cfg := config{topic: "oms.order.events", forwardTo: "replay", idleTimeout: 20 * time.Millisecond}
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}

	scanner := eventScanner{
		cfg:      cfg,
		client:   &stubOffsetClient{offsetErr: map[int32]error{0: errors.New("offset")}},
		consumer: &stubPartitionConsumerSource{},
		out:      newEncoder(&bytes.Buffer{}),
	}
	if _, err := scanner.scanPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected offset error")
	}

	scanner.client = client
	scanner.consumer = &stubPartitionConsumerSource{consumeErr: errors.New("consume")}
	if _, err := scanner.scanPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected consume error")
	}

	pcWithErr := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	pcWithErr.errors <- &sarama.ConsumerError{Err: errors.New("consumer boom")}
	scanner.consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pcWithErr}}
	if _, err := scanner.scanPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected consumer error branch")
	}

	scanner.consumer = &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer([]*sarama.ConsumerMessage{eventMessage(0, 0, "user-1")}),
	}}
	scanner.producer = &stubForwardProducer{sendErr: errors.New("send fail")}
	if _, err := scanner.scanPartition(context.Background(), 0, 1); err == nil {
		t.Fatal("expected producer send error")
	}
}

func TestScanPartition_IdleTimeoutAndContext(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	idle := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	scanner := eventScanner{
		cfg:      config{topic: "oms.order.events", idleTimeout: 10 * time.Millisecond},
		client:   client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: idle}},
		out:      newEncoder(&bytes.Buffer{}),
	}

	stats, err := scanner.scanPartition(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("unexpected idle-timeout error: %v", err)
	}
	if stats.processed != 0 {
		t.Fatalf("expected processed=0, got %+v", stats)
	}
	if !idle.closed {
		t.Fatal("expected partition consumer to be closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scanner.scanPartition(ctx, 0, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestScanPartition_ClosedErrorsChannelKeepsReading(t *testing.T) {
	client := &stubOffsetClient{offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	pc := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError),
	}
	close(pc.errors)

	go func() {
		time.Sleep(30 * time.Millisecond)
		pc.messages <- eventMessage(0, 0, "user-1")
	}()

	scanner := eventScanner{
		cfg:      config{topic: "oms.order.events", idleTimeout: time.Second},
		client:   client,
		consumer: &stubPartitionConsumerSource{consumers: map[int32]partitionConsumer{0: pc}},
		out:      newEncoder(&bytes.Buffer{}),
	}
	stats, err := scanner.scanPartition(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("scanPartition failed: %v", err)
	}
	if stats.processed != 1 || stats.matched != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if pc.errorsCalls != 1 {
		t.Fatalf("errors channel must be fetched once, got %d", pc.errorsCalls)
	}
}

func TestRunScan(t *testing.T) {
	cfg := config{topic: "oms.order.events", limit: 1, idleTimeout: 20 * time.Millisecond}

	if _, err := runScan(context.Background(), cfg, nil, nil, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected missing deps error")
	}

	client := &stubOffsetClient{
		partitions: []int32{2, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 1},
			2: {oldest: 0, newest: 1},
		},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{eventMessage(0, 0, "user-1")}),
			2: closedPartitionConsumer([]*sarama.ConsumerMessage{eventMessage(2, 0, "user-2")}),
		},
	}

	stats, err := runScan(context.Background(), cfg, client, consumer, nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("runScan failed: %v", err)
	}
	if stats.processed != 1 {
		t.Fatalf("expected limit to stop scan, got %+v", stats)
	}
	if len(consumer.calls) != 1 || consumer.calls[0].partition != 0 {
		t.Fatalf("expected only first sorted partition, got %+v", consumer.calls)
	}

	forwardCfg := cfg
	forwardCfg.forwardTo = "replay"
	if _, err := runScan(context.Background(), forwardCfg, client, consumer, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected forward mode to require producer")
	}

	if _, err := runScan(context.Background(), cfg, &stubOffsetClient{partitionsErr: errors.New("meta")}, consumer, nil, &bytes.Buffer{}); err == nil {
		t.Fatal("expected partitions error")
	}

	stats, err = runScan(context.Background(), cfg, &stubOffsetClient{}, consumer, nil, &bytes.Buffer{})
	if err != nil || stats != (scanStats{}) {
		t.Fatalf("expected empty scan for topic without partitions, got %+v %v", stats, err)
	}
}

func TestRun_UsesDependencies(t *testing.T) {
	oldDeps := newScanDependencies
	defer func() { newScanDependencies = oldDeps }()

	cfg := config{topic: "oms.order.events", forwardTo: "replay", limit: 5, idleTimeout: 20 * time.Millisecond}

	newScanDependencies = func(config) (offsetClient, partitionConsumerSource, forwardProducer, error) {
		return nil, nil, nil, errors.New("deps failed")
	}
	if _, err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil || !strings.Contains(err.Error(), "deps failed") {
		t.Fatalf("expected deps error, got %v", err)
	}

	client := &stubOffsetClient{
		partitions: []int32{0},
		offsets:    map[int32]offsetRange{0: {oldest: 0, newest: 1}},
	}
	consumer := &stubPartitionConsumerSource{
		consumers: map[int32]partitionConsumer{
			0: closedPartitionConsumer([]*sarama.ConsumerMessage{eventMessage(0, 0, "user-1")}),
		},
	}
	producer := &stubForwardProducer{}
	newScanDependencies = func(config) (offsetClient, partitionConsumerSource, forwardProducer, error) {
		return client, consumer, producer, nil
	}

	stats, err := run(context.Background(), cfg, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stats.forwarded != 1 {
		t.Fatalf("expected one forwarded event, got %+v", stats)
	}
	if !client.closed || !consumer.closed || !producer.closed {
		t.Fatalf("expected all deps to be closed: client=%v consumer=%v producer=%v", client.closed, consumer.closed, producer.closed)
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("ORDER_EVENTS_FAIL_EXIT") == "1" {
		fail("boom")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "ORDER_EVENTS_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     map[int32]error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if err, ok := s.offsetErr[partition]; ok {
		return 0, err
	}

	r := s.offsets[partition]
	switch marker {
	case sarama.OffsetOldest:
		return r.oldest, nil
	case sarama.OffsetNewest:
		return r.newest, nil
	default:
		return 0, fmt.Errorf("unsupported marker %d", marker)
	}
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	if s.partitionsErr != nil {
		return nil, s.partitionsErr
	}
	return append([]int32(nil), s.partitions...), nil
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubPartitionConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubPartitionConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, fmt.Errorf("partition %d not configured", partition)
	}
	return pc, nil
}

func (s *stubPartitionConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages    chan *sarama.ConsumerMessage
	errors      chan *sarama.ConsumerError
	errorsCalls int
	closed      bool
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError {
	s.errorsCalls++
	return s.errors
}
func (s *stubPartitionConsumer) Close() error {
	s.closed = true
	return nil
}

func closedPartitionConsumer(messages []*sarama.ConsumerMessage) *stubPartitionConsumer {
	msgCh := make(chan *sarama.ConsumerMessage, len(messages))
	errCh := make(chan *sarama.ConsumerError)
	for _, msg := range messages {
		msgCh <- msg
	}
	close(msgCh)
	close(errCh)
	return &stubPartitionConsumer{messages: msgCh, errors: errCh}
}

type stubForwardProducer struct {
	sendErr error
	calls   int
	closed  bool
	lastMsg *sarama.ProducerMessage
}

func (s *stubForwardProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	s.calls++
	s.lastMsg = msg
	if s.sendErr != nil {
		return 0, 0, s.sendErr
	}
	return 0, int64(s.calls), nil
}

func (s *stubForwardProducer) Close() error {
	s.closed = true
	return nil
}
