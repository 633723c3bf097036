package bus

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig configures the paho-backed adapter. Grounded on
// internal/mqtt/hub.go's HubConfig shape.
type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
}

// MQTT is the production Bus adapter. It wraps paho.mqtt.golang with
// reconnect-with-backoff (§5: "reconnect with exponential backoff, at
// least 1s, capped reasonable"), matching internal/mqtt/hub.go's
// SetAutoReconnect/SetConnectRetry usage plus an explicit backoff loop for
// the initial connect.
type MQTT struct {
	cfg    MQTTConfig
	logger *slog.Logger
	client paho.Client

	connected atomic.Bool

	mu       sync.Mutex
	handlers map[string]Handler
}

func NewMQTT(cfg MQTTConfig, logger *slog.Logger) *MQTT {
	return &MQTT{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

func (m *MQTT) Start(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(m.cfg.BrokerURL).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Second)

	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
		opts.SetPassword(m.cfg.Password)
	}

	opts.SetOnConnectHandler(func(paho.Client) {
		m.connected.Store(true)
		m.logger.Info("mqtt connected", "broker", m.cfg.BrokerURL)
		m.resubscribeAll()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		m.connected.Store(false)
		m.logger.Error("mqtt connection lost", "error", err)
	})

	m.client = paho.NewClient(opts)

	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt < 5; attempt++ {
		token := m.client.Connect()
		if token.Wait() && token.Error() == nil {
			lastErr = nil
			break
		}
		lastErr = token.Error()
		m.logger.Warn("mqtt connect failed, retrying", "attempt", attempt, "backoff", backoff, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(math.Min(float64(backoff)*2, float64(30*time.Second)))
	}
	if lastErr != nil {
		return lastErr
	}

	go func() {
		<-ctx.Done()
		m.Close()
	}()
	return nil
}

func (m *MQTT) resubscribeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for topic, h := range m.handlers {
		m.subscribeLocked(topic, h)
	}
}

func (m *MQTT) subscribeLocked(topic string, h Handler) {
	m.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		h(msg.Payload())
	})
}

func (m *MQTT) Subscribe(topic string, handler Handler) error {
	m.mu.Lock()
	m.handlers[topic] = handler
	m.mu.Unlock()

	if m.client == nil || !m.client.IsConnected() {
		return nil
	}
	token := m.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (m *MQTT) Publish(topic string, payload []byte) error {
	if m.client == nil {
		return errNotConnected
	}
	token := m.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (m *MQTT) Connected() bool {
	return m.connected.Load()
}

func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	m.connected.Store(false)
}

type notConnectedError struct{}

func (notConnectedError) Error() string { return "mqtt: not connected" }

var errNotConnected = notConnectedError{}
