/*
Copyright 2023 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in
compliance with the License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is
distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
implied. See the License for the specific language governing permissions and limitations under the
License.
*/

package network

import (
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// ListenerBuilder contains the data and logic needed to create a network listener. Don't create
// instances of this object directly, use the NewListener function instead.
type ListenerBuilder struct {
	logger  *slog.Logger
	network string
	address string
	tlsCrt  string
	tlsKey  string
}

// NewListener creates a builder that can then used to configure and create a network listener.
func NewListener() *ListenerBuilder {
	return &ListenerBuilder{
		network: "tcp",
	}
}

// SetLogger sets the logger that the listener will use to send messages to the log. This is
// mandatory.
func (b *ListenerBuilder) SetLogger(value *slog.Logger) *ListenerBuilder {
	b.logger = value
	return b
}

// SetNetwork sets the network. This is optional and the default is TCP.
func (b *ListenerBuilder) SetNetwork(value string) *ListenerBuilder {
	b.network = value
	return b
}

// SetAddress sets the listen address. This is mandatory.
func (b *ListenerBuilder) SetAddress(value string) *ListenerBuilder {
	b.address = value
	return b
}

// SetTLS sets the files that contain the certificate and the key, in PEM format. When both are
// empty the listener doesn't use TLS.
func (b *ListenerBuilder) SetTLS(crt, key string) *ListenerBuilder {
	b.tlsCrt = crt
	b.tlsKey = key
	return b
}

// Build uses the data stored in the builder to create a new network listener.
func (b *ListenerBuilder) Build() (result net.Listener, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}
	if b.network == "" {
		err = errors.New("network is mandatory")
		return
	}
	if b.address == "" {
		err = errors.New("address is mandatory")
		return
	}
	if (b.tlsCrt == "") != (b.tlsKey == "") {
		err = errors.New("TLS certificate and key must be given together")
		return
	}

	var config *tls.Config
	if b.tlsCrt != "" {
		var crt tls.Certificate
		crt, err = tls.LoadX509KeyPair(b.tlsCrt, b.tlsKey)
		if err != nil {
			err = fmt.Errorf("failed to load TLS key pair: %w", err)
			return
		}
		b.logger.Info(
			"Loaded TLS key and certificate",
			slog.String("key", b.tlsKey),
			slog.String("crt", b.tlsCrt),
		)
		config = &tls.Config{
			Certificates: []tls.Certificate{crt},
			MinVersion:   tls.VersionTLS12,
		}
	}

	listener, err := net.Listen(b.network, b.address)
	if err != nil {
		err = fmt.Errorf("failed to listen on %s: %w", b.address, err)
		return
	}
	if config != nil {
		listener = tls.NewListener(listener, config)
	}
	result = listener
	return
}
