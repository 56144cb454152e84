package connection

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HandleVisitor lets callers select the protocol arm of a handle without
// type switches.
type HandleVisitor interface {
	ProtocolIsHTTP(baseURL string, client *http.Client) error
	ProtocolIsGRPC(conn *grpc.ClientConn) error
}

// Handle is a resolved proxy to one named remote service. A handle stays valid
// until the connection manager evicts it; callers never close handles they
// obtained from the manager.
type Handle interface {
	Name() directory.ServiceName
	Protocol() directory.Protocol
	ApplyVisitor(visitor HandleVisitor) error
	Ping(ctx context.Context) error
	Close() error
}

// DialFunc turns a directory endpoint into a live service handle.
type DialFunc func(ctx context.Context, name directory.ServiceName, endpoint directory.Endpoint) (Handle, error)

// DialOptions tunes how service handles are established.
type DialOptions struct {
	// HTTPTimeout applies to every request made through an HTTP handle.
	HTTPTimeout time.Duration
	// GRPCDialOptions override the default insecure credentials.
	GRPCDialOptions []grpc.DialOption
}

func (o *DialOptions) optHTTPTimeout() time.Duration {
	if o.HTTPTimeout == 0 {
		return 30 * time.Second
	}
	return o.HTTPTimeout
}

// NewDialer returns the default DialFunc for the given options.
func NewDialer(options DialOptions, logger logging.Logger) DialFunc {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return func(ctx context.Context, name directory.ServiceName, endpoint directory.Endpoint) (Handle, error) {
		return dialEndpoint(ctx, name, endpoint, options, logger)
	}
}

func dialEndpoint(ctx context.Context, name directory.ServiceName, endpoint directory.Endpoint, options DialOptions, logger logging.Logger) (Handle, error) {
	address := endpoint.Address
	if address == "" {
		address = "localhost"
	}
	target := fmt.Sprintf("%s:%d", address, endpoint.Port)

	switch endpoint.Protocol {
	case directory.ProtocolHTTP:
		logger.Debugf("Binding HTTP handle for %s at %s", name, target)
		return &httpHandle{
			name:    name,
			baseURL: "http://" + target,
			client: &http.Client{
				Timeout: options.optHTTPTimeout(),
			},
		}, nil

	case directory.ProtocolGRPC:
		logger.Debugf("Connecting gRPC handle for %s at %s", name, target)

		dialOptions := options.GRPCDialOptions
		if len(dialOptions) == 0 {
			dialOptions = []grpc.DialOption{
				grpc.WithTransportCredentials(insecure.NewCredentials()),
			}
			logger.Debugf("Using default insecure gRPC dial options")
		}

		conn, err := grpc.NewClient(target, dialOptions...)
		if err != nil {
			return nil, errors.NewConnectionError("failed to establish gRPC connection", err).
				WithContext("service", name).
				WithContext("target", target)
		}

		logger.Infof("gRPC handle for %s connected at %s", name, target)

		return &grpcHandle{
			name: name,
			conn: conn,
		}, nil

	default:
		return nil, errors.NewValidationError("unsupported endpoint protocol", nil).
			WithContext("service", name).
			WithContext("protocol", endpoint.Protocol)
	}
}

type httpHandle struct {
	name    directory.ServiceName
	baseURL string
	client  *http.Client
}

func (h *httpHandle) Name() directory.ServiceName {
	return h.name
}

func (h *httpHandle) Protocol() directory.Protocol {
	return directory.ProtocolHTTP
}

func (h *httpHandle) ApplyVisitor(visitor HandleVisitor) error {
	return visitor.ProtocolIsHTTP(h.baseURL, h.client)
}

func (h *httpHandle) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.NewConnectionError("service health check failed", err).
			WithContext("service", h.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewConnectionError(
			fmt.Sprintf("service health check returned status %d", resp.StatusCode), nil).
			WithContext("service", h.name)
	}

	return nil
}

func (h *httpHandle) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

type grpcHandle struct {
	name directory.ServiceName
	conn *grpc.ClientConn
}

func (h *grpcHandle) Name() directory.ServiceName {
	return h.name
}

func (h *grpcHandle) Protocol() directory.Protocol {
	return directory.ProtocolGRPC
}

func (h *grpcHandle) ApplyVisitor(visitor HandleVisitor) error {
	return visitor.ProtocolIsGRPC(h.conn)
}

func (h *grpcHandle) Ping(ctx context.Context) error {
	healthClient := grpc_health_v1.NewHealthClient(h.conn)

	resp, err := healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return errors.NewConnectionError("service health check failed", err).
			WithContext("service", h.name)
	}

	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return errors.NewConnectionError("service is not serving", nil).
			WithContext("service", h.name).
			WithContext("status", resp.GetStatus().String())
	}

	return nil
}

func (h *grpcHandle) Close() error {
	return h.conn.Close()
}
