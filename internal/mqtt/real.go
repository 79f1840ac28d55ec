package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"fan_controller"
	"fan_controller/internal/logger"
	"fan_controller/internal/metrics"
	"fan_controller/internal/models"
)

const (
	queueSize      = 64
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var (
	ErrQueueFull       = errors.New("mqtt publish queue full")
	ErrPublisherClosed = errors.New("mqtt publisher closed")
)

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// RealPublisher publishes through paho from a single worker goroutine, so
// callers only pay for a channel send.
type RealPublisher struct {
	client paho.Client
	base   string
	queue  chan message
	wg     sync.WaitGroup
	once   sync.Once
	log    *logger.Logger

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
}

// NewRealPublisher connects to broker. A retained "offline" will is left on
// <topic>/status if the node disappears.
func NewRealPublisher(broker, clientID, topic string, log *logger.Logger) (*RealPublisher, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(topic+TopicStatus, "offline", 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			log.Infow("mqtt_connected", "broker", broker)
			c.Publish(topic+TopicStatus, 1, true, "online")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return newRealPublisher(client, topic, log), nil
}

func newRealPublisher(client paho.Client, topic string, log *logger.Logger) *RealPublisher {
	p := &RealPublisher{client: client, base: topic, queue: make(chan message, queueSize), log: log}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *RealPublisher) run() {
	defer p.wg.Done()
	for m := range p.queue {
		token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
		var err error
		if !token.WaitTimeout(publishTimeout) {
			err = fmt.Errorf("publish timeout")
		} else {
			err = token.Error()
		}
		if err != nil {
			metrics.IncMQTTPublish(metrics.ResultError)
			p.log.Warnw("mqtt_publish_failed", "topic", m.topic, "err", err)
			continue
		}
		metrics.IncMQTTPublish(metrics.ResultSuccess)
	}
}

func (p *RealPublisher) enqueue(m message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- m:
		return nil
	default:
		metrics.IncMQTTPublish("dropped")
		return ErrQueueFull
	}
}

// PublishState sends the state retained, QoS 0.
func (p *RealPublisher) PublishState(st fan_controller.NodeState) error {
	payload, err := FormatState(st)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	return p.enqueue(message{topic: p.base + TopicState, retained: true, payload: payload})
}

// PublishActivity sends an activity entry, QoS 1.
func (p *RealPublisher) PublishActivity(e models.LogEntry) error {
	payload, err := FormatActivity(e)
	if err != nil {
		return fmt.Errorf("format activity: %w", err)
	}
	return p.enqueue(message{topic: p.base + TopicActivity, qos: 1, payload: payload})
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close drains the queue and disconnects.
func (p *RealPublisher) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
		p.client.Publish(p.base+TopicStatus, 1, true, "offline").WaitTimeout(time.Second)
		p.client.Disconnect(1000)
	})
	return nil
}
