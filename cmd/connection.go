// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/ld2450/pkg/instrument"
	"github.com/Thermoquad/ld2450/pkg/ld2450"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConnection streams the sensor UART over a WebSocket bridge. Each
// binary message carries a chunk of the raw byte stream; text messages are
// bridge status and are skipped.
type WebSocketConnection struct {
	conn    *websocket.Conn
	message io.Reader // current binary message, nil between messages
	err     error
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	for w.err == nil {
		if w.message == nil {
			kind, r, err := w.conn.NextReader()
			if err != nil {
				w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
				break
			}
			if kind == websocket.BinaryMessage {
				w.message = r
			}
			continue
		}

		n, err := w.message.Read(p)
		if errors.Is(err, io.EOF) {
			w.message = nil
			err = nil
		}
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, w.err
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection (8N1)
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	return &SerialConnection{port: port}, nil
}

// bridgeDialer returns a dialer for a ws:// or wss:// bridge URL.
func bridgeDialer(u *url.URL, skipSSLVerify bool) (*websocket.Dialer, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	switch u.Scheme {
	case "ws":
	case "wss":
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}
	return dialer, nil
}

// basicAuthHeader is empty unless both credentials are set.
func basicAuthHeader(username, password string) http.Header {
	header := http.Header{}
	if username != "" && password != "" {
		req := http.Request{Header: header}
		req.SetBasicAuth(username, password)
	}
	return header
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	dialer, err := bridgeDialer(u, skipSSLVerify)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, basicAuthHeader(username, password))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("LD2450_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on the
// loaded configuration
func OpenConnection() (Connection, string, error) {
	if cfg.WebSocket.URL != "" {
		password := ""
		if cfg.WebSocket.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(cfg.WebSocket.URL, cfg.WebSocket.Username, password, cfg.WebSocket.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", cfg.WebSocket.URL), nil
	}

	if cfg.Serial.Port != "" {
		conn, err := OpenSerialConnection(cfg.Serial.Port, cfg.Serial.Baud)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", cfg.Serial.Port, cfg.Serial.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// session is an open link to one sensor with a client bound to it.
type session struct {
	info      string
	transport *ld2450.StreamTransport
	client    *ld2450.Client
	stats     *ld2450.Statistics
}

// openSession opens the configured connection and binds a client to it.
// Frame events go to the logger, a Statistics collector and any extra
// observers.
func openSession(extra ...ld2450.Observer) (*session, error) {
	conn, info, err := OpenConnection()
	if err != nil {
		return nil, err
	}

	opts := cfg.ClientOptions(nil)
	stats := ld2450.NewStatistics()
	stats.Decoding = opts.Decoding
	observers := ld2450.MultiObserver{instrument.NewZapObserver(log), stats}
	observers = append(observers, extra...)

	opts.Observer = observers

	t := ld2450.NewStreamTransport(conn, cfg.Serial.ByteTimeout)
	log.Info("connection opened", zap.String("connection", info))
	return &session{
		info:      info,
		transport: t,
		client:    ld2450.NewClient(t, opts),
		stats:     stats,
	}, nil
}

// powerUp waits for the module to accept commands after the port opens.
func (s *session) powerUp(ctx context.Context) error {
	delay := cfg.Driver.PowerUpDelay
	if delay <= 0 {
		return nil
	}
	log.Debug("waiting for module power up", zap.Duration("delay", delay))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain drops reports that queued up while nothing was reading.
func (s *session) drain() {
	if n := s.transport.Drain(); n > 0 {
		log.Debug("dropped buffered input", zap.Int("bytes", n))
	}
}

// Close stops the transport and closes the connection.
func (s *session) Close() error {
	return s.transport.Close()
}
