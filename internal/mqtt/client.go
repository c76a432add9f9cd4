package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ponytojas/go-timescale-records/config"
	"github.com/ponytojas/go-timescale-records/internal/metrics"
	"github.com/ponytojas/go-timescale-records/internal/models"
)

// Ingest outcomes
const (
	OutcomeStored    = "stored"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

var errEmptyReading = errors.New("reading carries no measurement")

// ReadingWriter persists readings
type ReadingWriter interface {
	InsertReading(ctx context.Context, r models.Reading) (int64, error)
}

// Client bridges sensor messages from an MQTT broker into the record table
type Client struct {
	client       mqtt.Client
	writer       ReadingWriter
	config       *config.Config
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration
}

// NewClient creates a new MQTT client
func NewClient(cfg *config.Config, writer ReadingWriter, logger *slog.Logger, m *metrics.Metrics) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	brokerURL := cfg.GetMQTTBrokerURL()
	opts.AddBroker(brokerURL)
	opts.SetClientID(cfg.MQTT.ClientID)

	// Configure TLS if using SSL or WSS
	if strings.HasPrefix(brokerURL, "ssl://") || strings.HasPrefix(brokerURL, "wss://") {
		logger.Info("configuring TLS for secure connection", "broker", brokerURL)
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("connection to MQTT broker lost", "error", err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		logger.Info("attempting to reconnect to MQTT broker")
	})

	return &Client{
		client:       mqtt.NewClient(opts),
		writer:       writer,
		config:       cfg,
		logger:       logger,
		metrics:      m,
		writeTimeout: cfg.Database.QueryTimeout,
	}, nil
}

// Connect connects to the MQTT broker
func (c *Client) Connect() error {
	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	c.logger.Info("connected to MQTT broker", "broker", c.config.GetMQTTBrokerURL())
	return nil
}

// Subscribe subscribes to the configured topic
func (c *Client) Subscribe() error {
	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.logger.Debug("received message", "topic", msg.Topic(), "payload", string(msg.Payload()))
		c.HandlePayload(context.Background(), msg.Payload())
	}

	token := c.client.Subscribe(c.config.MQTT.Topic, 0, handler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.config.MQTT.Topic, token.Error())
	}
	c.logger.Info("subscribed to topic", "topic", c.config.MQTT.Topic)
	return nil
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
	c.logger.Info("disconnected from MQTT broker")
}

// HandlePayload parses one message and stores it. Malformed payloads are
// logged and skipped.
func (c *Client) HandlePayload(ctx context.Context, payload []byte) string {
	reading, err := ParseReading(payload)
	if err != nil {
		c.logger.Warn("skipping malformed message", "error", err)
		c.metrics.IncIngest(OutcomeMalformed)
		return OutcomeMalformed
	}

	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}

	id, err := c.writer.InsertReading(ctx, reading)
	if err != nil {
		c.logger.Error("failed to store reading", "error", err)
		c.metrics.IncIngest(OutcomeFailed)
		return OutcomeFailed
	}

	c.logger.Info("stored reading", "id", id)
	c.metrics.IncIngest(OutcomeStored)
	return OutcomeStored
}

// ParseReading decodes a JSON payload. Measurements may be numbers or
// numeric strings; absent or null ones stay nil.
func ParseReading(payload []byte) (models.Reading, error) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.Reading{}, fmt.Errorf("error unmarshaling message: %w", err)
	}

	var (
		r   models.Reading
		err error
	)
	fields := []struct {
		key string
		dst **float64
	}{
		{models.FieldTemperature, &r.Temperature},
		{models.FieldHumidity, &r.Humidity},
		{models.FieldGasLevel, &r.GasLevel},
		{models.FieldLight, &r.Light},
	}
	for _, f := range fields {
		if *f.dst, err = getFloat64Value(raw, f.key); err != nil {
			return models.Reading{}, err
		}
	}

	if r.Temperature == nil && r.Humidity == nil && r.GasLevel == nil && r.Light == nil {
		return models.Reading{}, errEmptyReading
	}
	return r, nil
}

// getFloat64Value extracts an optional finite float64 value from the map
func getFloat64Value(data map[string]any, key string) (*float64, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	var f float64
	switch v := val.(type) {
	case float64:
		f = v
	case string:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", key, v)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported type %T", key, val)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: %v is not a finite number", key, val)
	}
	return &f, nil
}
