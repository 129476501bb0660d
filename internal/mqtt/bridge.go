// internal/mqtt/bridge.go
package mqtt

import (
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/relayd/internal/config"
	"github.com/tamzrod/relayd/internal/logging"
	"github.com/tamzrod/relayd/internal/status"
)

const (
	connectTimeout    = 10 * time.Second
	tokenTimeout      = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
	keepAlive         = 60 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// Relays is the intent surface the bridge drives.
type Relays interface {
	RelayOn(relay int) error
	RelayOff(relay int) error
}

// Bridge maps MQTT set topics onto relay intent and publishes the
// controller's status document.
type Bridge struct {
	client pahomqtt.Client
	topics Topics
	qos    byte
	relays Relays
	logger *slog.Logger
}

// Connect dials the broker and subscribes to the set topics. Subscriptions
// and the online marker are re-established by paho's reconnect.
func Connect(cfg config.MQTTConfig, relays Relays, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	b := &Bridge{
		topics: Topics{Prefix: cfg.TopicPrefix},
		qos:    byte(cfg.QoS),
		relays: relays,
		logger: logger.With("component", "mqtt", "broker", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
	}

	opts := b.buildOptions(cfg)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) { b.onConnect(c) })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		b.logger.Warn("connection lost", "error", err)
	})

	b.client = pahomqtt.NewClient(opts)

	tok := b.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect timeout after %v", connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect: %w", err)
	}

	return b, nil
}

func (b *Bridge) buildOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)

	// Broker announces us offline if we vanish without Close.
	opts.SetWill(b.topics.Availability(), payloadOffline, b.qos, true)

	return opts
}

func (b *Bridge) onConnect(c pahomqtt.Client) {
	b.logger.Info("connected")

	tok := c.Publish(b.topics.Availability(), b.qos, true, payloadOnline)
	if err := waitToken(tok, tokenTimeout); err != nil {
		b.logger.Warn("availability publish failed", "error", err)
	}

	filter := b.topics.RelaySetFilter()
	tok = c.Subscribe(filter, b.qos, func(_ pahomqtt.Client, m pahomqtt.Message) {
		if err := b.handleSet(m.Topic(), m.Payload()); err != nil {
			b.logger.Warn("relay set rejected", "topic", m.Topic(), "error", err)
		}
	})
	if err := waitToken(tok, tokenTimeout); err != nil {
		// Relay set messages are not received until the next reconnect.
		b.logger.Error("subscribe failed", "topic", filter, "error", err)
		return
	}
	b.logger.Info("subscribed", "topic", filter)
}

// waitToken waits up to d for tok and returns its error.
func waitToken(tok pahomqtt.Token, d time.Duration) error {
	if !tok.WaitTimeout(d) {
		return fmt.Errorf("mqtt: timeout after %v", d)
	}
	return tok.Error()
}

// handleSet applies one inbound set message.
func (b *Bridge) handleSet(topic string, payload []byte) error {
	relay, err := b.topics.ParseRelaySet(topic)
	if err != nil {
		return err
	}
	on, err := ParseState(payload)
	if err != nil {
		return err
	}

	if on {
		err = b.relays.RelayOn(relay)
	} else {
		err = b.relays.RelayOff(relay)
	}
	if err != nil {
		return err
	}

	b.logger.Info("relay intent set", "relay", relay, "on", on)
	return nil
}

// PublishStatus sends the snapshot retained. It does not wait for the
// broker; it runs on the controller goroutine.
func (b *Bridge) PublishStatus(s status.Snapshot) {
	payload, err := status.Encode(s)
	if err != nil {
		b.logger.Error("status encode failed", "error", err)
		return
	}

	tok := b.client.Publish(b.topics.Status(), b.qos, true, payload)
	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			b.logger.Warn("status publish failed", "error", err)
		}
	default:
	}
}

// Close marks us offline and disconnects.
func (b *Bridge) Close() {
	if b.client == nil {
		return
	}
	if b.client.IsConnected() {
		tok := b.client.Publish(b.topics.Availability(), b.qos, true, payloadOffline)
		tok.WaitTimeout(time.Second)
	}
	b.client.Disconnect(disconnectQuiesce)
	b.logger.Info("disconnected")
}
