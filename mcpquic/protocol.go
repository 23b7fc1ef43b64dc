// CLAUDE:SUMMARY MCP-over-QUIC wire protocol: ALPN and magic-byte
// preamble, QUIC/TLS configs, connection error taxonomy.
//
// Package mcpquic carries MCP sessions over a dedicated QUIC stream.
// The wire contract is deliberately small: the client must negotiate
// the dommark ALPN, open one bidirectional stream, and send a 4-byte
// magic preamble before any JSON-RPC traffic. Anything else is a
// protocol violation and the connection is closed with a typed error
// code, which keeps port scanners and misdirected HTTP/3 clients from
// tying up MCP sessions.
package mcpquic

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPNProtocolMCP is the ALPN identifier negotiated for MCP traffic.
	ALPNProtocolMCP = "dommark-quic-v1"

	// MagicBytesMCP is the stream preamble the client sends before any
	// JSON-RPC bytes.
	MagicBytesMCP = "DMK1"

	// MaxMessageSize bounds a single MCP message. Annotated page
	// snapshots travel inside tool results, so the cap is generous.
	MaxMessageSize = 10 * 1024 * 1024

	// DefaultIdleTimeout closes connections with no traffic. MCP
	// sessions idle between tool calls, so this is minutes, not seconds.
	DefaultIdleTimeout = 5 * time.Minute

	// DefaultKeepAlive keeps NAT bindings warm below the idle timeout.
	DefaultKeepAlive = 30 * time.Second
)

// Application-level error codes carried in QUIC CONNECTION_CLOSE frames.
const (
	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x02
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
)

// StreamErrorProtocolConfusion resets a stream whose first bytes were
// not the magic preamble.
const StreamErrorProtocolConfusion quic.StreamErrorCode = 0x03

var (
	// ErrInvalidMagicBytes means the stream did not start with MagicBytesMCP.
	ErrInvalidMagicBytes = errors.New("mcpquic: invalid magic bytes")
	// ErrUnsupportedALPN means the TLS handshake negotiated a different protocol.
	ErrUnsupportedALPN = errors.New("mcpquic: unsupported ALPN protocol")
	// ErrConnectionClosed means the peer closed the connection mid-session.
	ErrConnectionClosed = errors.New("mcpquic: connection closed")
)

// ConnectionError wraps a transport failure with the peer address and
// the QUIC application error code that was (or would be) sent.
type ConnectionError struct {
	RemoteAddr string
	Code       quic.ApplicationErrorCode
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mcpquic: connection to %s failed (code 0x%02x): %v", e.RemoteAddr, uint64(e.Code), e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendMagicBytes writes the stream preamble.
func SendMagicBytes(w io.Writer) error {
	if _, err := w.Write([]byte(MagicBytesMCP)); err != nil {
		return fmt.Errorf("mcpquic: send magic bytes: %w", err)
	}
	return nil
}

// ValidateMagicBytes consumes and checks the stream preamble.
func ValidateMagicBytes(r io.Reader) error {
	buf := make([]byte, len(MagicBytesMCP))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: read preamble: %v", ErrInvalidMagicBytes, err)
	}
	if string(buf) != MagicBytesMCP {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, buf)
	}
	return nil
}

// ProductionQUICConfig returns the QUIC tuning shared by client and
// server. 0-RTT stays off: replayable early data and tool calls with
// side effects do not mix.
func ProductionQUICConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  DefaultIdleTimeout,
		KeepAlivePeriod: DefaultKeepAlive,
		Allow0RTT:       false,
	}
}

// SelfSignedTLSConfig builds a server TLS config around a fresh
// ephemeral certificate for localhost use. Deployments with real
// certificates supply their own config; only the NextProtos contract
// matters to this package.
func SelfSignedTLSConfig() (*tls.Config, error) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocolMCP},
	}, nil
}

// ServerTLSConfig builds a server TLS config from certificate and key
// files on disk.
func ServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("mcpquic: load keypair: %w", err)
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocolMCP},
	}, nil
}

// ClientTLSConfig builds the dialer-side TLS config. insecure skips
// server certificate verification, which is what a client talking to a
// SelfSignedTLSConfig server needs.
func ClientTLSConfig(insecure bool) *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS13,
		NextProtos:         []string{ALPNProtocolMCP},
		InsecureSkipVerify: insecure,
	}
}

// generateSelfSignedCert mints an ECDSA P-256 certificate for
// localhost, valid for one year.
func generateSelfSignedCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("mcpquic: generate key: %w", err)
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("mcpquic: generate serial: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"dommark"},
			CommonName:   "localhost",
		},
		NotBefore:             now,
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("mcpquic: create certificate: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("mcpquic: marshal key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("mcpquic: load key pair: %w", err)
	}
	return cert, nil
}
