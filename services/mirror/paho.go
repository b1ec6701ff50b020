//go:build !rp2040 && !rp2350

package mirror

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zigsense-go/errcode"
	"zigsense-go/services/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Client is a connected broker session.
type Client struct {
	client pahomqtt.Client
}

// Connect opens a session to cfg.Broker with auto-reconnect.
func Connect(cfg config.MirrorConfig) (*Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetOrderMatters(false)

	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errcode.New(errcode.Timeout, "mirror.connect", fmt.Sprintf("no connack after %v", connectTimeout))
	}
	if err := token.Error(); err != nil {
		return nil, errcode.Wrap(errcode.Error, "mirror.connect", err)
	}
	return &Client{client: c}, nil
}

func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !c.client.IsConnected() {
		return errcode.NotReady
	}
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errcode.Timeout
	}
	return token.Error()
}

// Close disconnects, allowing in-flight work a short grace period.
func (c *Client) Close() {
	c.client.Disconnect(250)
}
