package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"
)

// RegistryClient is the client-side surface of the remote service directory.
type RegistryClient interface {
	Lookup(ctx context.Context, name directory.ServiceName) (directory.Endpoint, error)
	ListServices(ctx context.Context) ([]directory.ServiceName, error)
	Health(ctx context.Context) error
}

type RegistryClientOptions struct {
	URL     string
	Timeout time.Duration
	Logger  logging.Logger
}

func (o *RegistryClientOptions) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func (o *RegistryClientOptions) OptURL() string {
	if o.URL == "" {
		return "tcp://127.0.0.1:18099"
	}
	return o.URL
}

func (o *RegistryClientOptions) OptTimeout() time.Duration {
	if o.Timeout == 0 {
		return 5 * time.Second
	}
	return o.Timeout
}

// NewRegistryClient creates an HTTP client for the service directory.
func NewRegistryClient(options RegistryClientOptions) (RegistryClient, error) {
	transportConfig, err := directory.ParseDirectoryURL(options.OptURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse directory URL: %w", err)
	}

	return &registryClient{
		baseURL: "http://localhost", // Actual address handled by transport
		httpClient: &http.Client{
			Transport: createTransport(transportConfig),
			Timeout:   options.OptTimeout(),
		},
		logger: options.OptLogger(),
	}, nil
}

type registryClient struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

func (c *registryClient) Lookup(ctx context.Context, name directory.ServiceName) (directory.Endpoint, error) {
	requestURL := fmt.Sprintf("%s/api/v1/lookup/%s", c.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return directory.Endpoint{}, fmt.Errorf("failed to create lookup request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return directory.Endpoint{}, errors.NewConnectionError("failed to reach service directory", err).
			WithContext("service", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return directory.Endpoint{}, errors.NewNotFoundError("service not bound", nil).
			WithContext("service", name)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp directory.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&errResp)
		return directory.Endpoint{}, errors.NewConnectionError(
			fmt.Sprintf("lookup failed with status %d: %s", resp.StatusCode, errResp.Error), nil).
			WithContext("service", name)
	}

	var result directory.LookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return directory.Endpoint{}, errors.NewConnectionError("failed to decode lookup response", err).
			WithContext("service", name)
	}

	c.logger.Debugf("Directory resolved %s to port %d (%s)", name, result.Endpoint.Port, result.Endpoint.Protocol)

	return result.Endpoint, nil
}

func (c *registryClient) ListServices(ctx context.Context) ([]directory.ServiceName, error) {
	requestURL := c.baseURL + "/api/v1/services"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewConnectionError("failed to reach service directory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewConnectionError(
			fmt.Sprintf("service listing failed with status %d", resp.StatusCode), nil)
	}

	var result directory.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewConnectionError("failed to decode service listing", err)
	}

	return result.Services, nil
}

func (c *registryClient) Health(ctx context.Context) error {
	requestURL := c.baseURL + "/api/v1/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewConnectionError("failed to reach service directory", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewConnectionError(
			fmt.Sprintf("directory health check failed with status %d", resp.StatusCode), nil)
	}

	return nil
}

func createTransport(config directory.TransportConfig) *http.Transport {
	switch config.TransportType {
	case directory.TransportUDS:
		socketPath := config.SocketPath
		if socketPath == "" {
			socketPath = "/tmp/bizdir.sock"
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		}

	default:
		address := config.TCPAddress
		if address == "" {
			address = "127.0.0.1:18099"
		}
		return &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "tcp", address)
			},
		}
	}
}
