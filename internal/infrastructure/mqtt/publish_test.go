package mqtt

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/voxhome/iot-core/internal/infrastructure/config"
)

func TestPublish_Validation(t *testing.T) {
	c := &Client{cfg: config.MQTTConfig{QoS: 1}}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "invalid qos",
			topic:   "iot/light/bedroom",
			payload: []byte("{}"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "iot/light/bedroom",
			payload: bytes.Repeat([]byte("x"), maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   "iot/light/bedroom",
			payload: []byte("{}"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublishDeviceCommand_NotConnected(t *testing.T) {
	c := &Client{cfg: config.MQTTConfig{QoS: 1}}

	err := c.PublishDeviceCommand("light", "living room", "on", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishDeviceCommand() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	c := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}
