// Package mqttstatus optionally publishes slot status snapshots to an MQTT
// broker, mirroring the teacher's mqtt_publisher.go connection/publish
// shape (auto-reconnect, ticker-driven publish loop) but publishing this
// gateway's slot status instead of SDR metric categories.
package mqttstatus

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
	"github.com/streamsquirrel/aes67gateway/internal/supervisor"
)

// Publisher pushes status snapshots to an MQTT broker on a timer.
type Publisher struct {
	client mqtt.Client
	cfg    gwconfig.MQTTConfig
	sup    *supervisor.Supervisor
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "aes67gw_" + hex.EncodeToString(b)
}

// New connects to the configured broker. Returns (nil, nil) if MQTT
// publishing is disabled in configuration, matching the teacher's pattern
// of a nil-safe publisher that call sites guard with a presence check.
func New(cfg gwconfig.MQTTConfig, sup *supervisor.Supervisor) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = generateClientID()
	}
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if cfg.TLSEnabled {
		opts.SetTLSConfig(&tls.Config{})
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("mqttstatus: connected to broker")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("mqttstatus: connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttstatus: connect to broker: %w", token.Error())
	}
	log.Printf("mqttstatus: connected to %s", cfg.Broker)

	return &Publisher{client: client, cfg: cfg, sup: sup}, nil
}

type statusPayload struct {
	Timestamp int64         `json:"timestamp"`
	Running   bool          `json:"running"`
	Message   string        `json:"message"`
	Slots     []slotPayload `json:"slots"`
}

type slotPayload struct {
	SlotID      int    `json:"slot_id"`
	AudioFrames uint64 `json:"audio_frames"`
	RTPPackets  uint64 `json:"rtp_packets"`
	LastError   string `json:"error,omitempty"`
}

// Run publishes a status snapshot immediately and then on the configured
// interval until ctx is canceled, mirroring startMetricsPublisher's
// publish-then-tick loop.
func (p *Publisher) Run(ctx context.Context) {
	interval := time.Duration(p.cfg.PublishIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	p.publish()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.client.Disconnect(250)
			return
		case <-ticker.C:
			p.publish()
		}
	}
}

func (p *Publisher) publish() {
	st := p.sup.CurrentStatus()
	statuses := p.sup.AllStatuses()

	payload := statusPayload{
		Timestamp: time.Now().Unix(),
		Running:   st.Running,
		Message:   st.Message,
	}
	for _, s := range statuses {
		payload.Slots = append(payload.Slots, slotPayload{
			SlotID:      s.SlotID,
			AudioFrames: s.AudioFrames,
			RTPPackets:  s.RTPPacketsSent,
			LastError:   s.LastError,
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("mqttstatus: marshal payload: %v", err)
		return
	}

	topic := p.cfg.TopicPrefix + "/status"
	token := p.client.Publish(topic, 0, false, data)
	if token.Wait() && token.Error() != nil {
		log.Printf("mqttstatus: publish to %s: %v", topic, token.Error())
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p != nil && p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
