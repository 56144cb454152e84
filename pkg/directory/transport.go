package directory

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"github.com/ingabireol/bizclient/pkg/errors"
)

// TransportType defines the type of transport for the directory server.
type TransportType string

const (
	TransportAuto TransportType = "auto"
	TransportUDS  TransportType = "uds"
	TransportTCP  TransportType = "tcp"
)

// TransportConfig configures the directory transport.
type TransportConfig struct {
	// Transport type (auto, uds, tcp)
	TransportType TransportType

	// Unix domain socket path
	SocketPath string

	// TCP address (host:port)
	TCPAddress string

	// Unix socket file permissions
	FileMode os.FileMode
}

// DefaultTransportConfig returns the default transport configuration for the platform.
func DefaultTransportConfig() TransportConfig {
	if runtime.GOOS == "windows" {
		// Named pipes would need go-winio; TCP loopback works everywhere.
		return DefaultTCPTransportConfig()
	}
	return TransportConfig{
		TransportType: TransportUDS,
		SocketPath:    "/tmp/bizdir.sock",
		FileMode:      0600,
	}
}

// DefaultTCPTransportConfig returns a TCP-based transport config.
func DefaultTCPTransportConfig() TransportConfig {
	return TransportConfig{
		TransportType: TransportTCP,
		TCPAddress:    "127.0.0.1:18099",
	}
}

// CreateListener creates a network listener based on the transport configuration.
func CreateListener(config TransportConfig) (net.Listener, error) {
	if config.TransportType == TransportAuto {
		config = DefaultTransportConfig()
	}

	switch config.TransportType {
	case TransportUDS:
		return createUDSListener(config)
	case TransportTCP:
		return createTCPListener(config)
	default:
		return nil, errors.NewValidationError("invalid transport type", nil).
			WithContext("transport_type", config.TransportType)
	}
}

func createUDSListener(config TransportConfig) (net.Listener, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.NewValidationError("Unix domain sockets are not supported on Windows, use tcp instead", nil)
	}

	socketPath := config.SocketPath
	if socketPath == "" {
		socketPath = "/tmp/bizdir.sock"
	}

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing socket file: %w", err)
	}

	dir := filepath.Dir(socketPath)
	if dir != "" && dir != "/tmp" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create socket directory: %w", err)
		}
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix domain socket listener: %w", err)
	}

	fileMode := config.FileMode
	if fileMode == 0 {
		fileMode = 0600
	}

	if err := os.Chmod(socketPath, fileMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket file permissions: %w", err)
	}

	return listener, nil
}

func createTCPListener(config TransportConfig) (net.Listener, error) {
	address := config.TCPAddress
	if address == "" {
		address = "127.0.0.1:18099"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP listener: %w", err)
	}

	return listener, nil
}

// GetListenerAddress returns a string representation of the listener address.
func GetListenerAddress(listener net.Listener) string {
	addr := listener.Addr()

	switch addr.Network() {
	case "tcp":
		return fmt.Sprintf("tcp://%s", addr.String())
	case "unix":
		return fmt.Sprintf("unix://%s", addr.String())
	default:
		return addr.String()
	}
}

// ParseDirectoryURL parses a directory URL and returns transport configuration.
// Accepted forms: unix:///path, tcp://host:port, http://host:port.
func ParseDirectoryURL(url string) (TransportConfig, error) {
	switch {
	case len(url) > 7 && url[:7] == "unix://":
		return TransportConfig{
			TransportType: TransportUDS,
			SocketPath:    url[7:],
		}, nil
	case len(url) > 6 && url[:6] == "tcp://":
		return TransportConfig{
			TransportType: TransportTCP,
			TCPAddress:    url[6:],
		}, nil
	case len(url) > 7 && url[:7] == "http://":
		return TransportConfig{
			TransportType: TransportTCP,
			TCPAddress:    url[7:],
		}, nil
	default:
		return TransportConfig{}, fmt.Errorf("unsupported directory URL: %s", url)
	}
}
