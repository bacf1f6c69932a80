package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	// Lnd configures the node connection.
	Lnd *LndConfig `json:"lnd"`

	// Request is the policy window for invoice creation. Defaults apply
	// when omitted.
	Request *RequestConfig `json:"request,omitempty"`

	// Send is the policy window for outgoing payments.
	Send *SendConfig `json:"send,omitempty"`

	// Amqp configures the node-event queue and the internal event bus.
	Amqp *AmqpConfig `json:"amqp"`
}

type LndConfig struct {
	Host string `json:"host"`
	Port uint16 `json:"port,string"`

	// Cert is the path to the tls cert for the grpc api, or the pem
	// content itself.
	Cert string `json:"cert"`

	// Macaroon is the path to the macaroon, or its hex encoding.
	Macaroon string `json:"macaroon"`
}

func (c *LndConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RequestConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Minimum string `json:"minimum,omitempty"`
	Maximum string `json:"maximum,omitempty"`
}

type SendConfig struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Minimum string `json:"minimum,omitempty"`
	Maximum string `json:"maximum,omitempty"`

	// MaxParts is the maximum number of partial payments a payment may be
	// split into. Defaults to 5.
	MaxParts uint32 `json:"max_parts,string,omitempty"`

	// Timeout bounds the send payment stream, in seconds. Defaults to 30.
	Timeout uint32 `json:"timeout,string,omitempty"`
}

type AmqpConfig struct {
	Url string `json:"url"`

	// Queue is the named queue carrying node notifications.
	Queue string `json:"queue"`

	// Exchange receives the canonical messages republished by the worker.
	Exchange string `json:"exchange"`
}

// Load reads the config file and resolves the lnd credential paths to their
// contents. Cert and macaroon values that are not readable files are taken
// literally; garbage fails later when the connection is constructed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if config.Lnd == nil {
		return nil, fmt.Errorf("config %s has no lnd node", path)
	}
	if config.Amqp == nil {
		return nil, fmt.Errorf("config %s has no amqp settings", path)
	}

	if tlsCert, err := os.ReadFile(config.Lnd.Cert); err == nil {
		config.Lnd.Cert = string(tlsCert)
	}
	if macaroon, err := os.ReadFile(config.Lnd.Macaroon); err == nil {
		config.Lnd.Macaroon = hex.EncodeToString(macaroon)
	}

	return &config, nil
}
