// Package gateway provides typed clients for the remote business services.
// Each gateway obtains its service handle from the connection manager on every
// call, so a reconnect is picked up transparently on the next operation.
// Transport failures surface as connection-category errors; nothing here
// retries or evicts handles.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ingabireol/bizclient/pkg/auth"
	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"

	"google.golang.org/grpc"
)

// remote is the shared base of every service gateway.
type remote struct {
	manager *connection.Manager
	session *auth.Session
	logger  logging.Logger
}

func newRemote(manager *connection.Manager, session *auth.Session, logger logging.Logger) remote {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return remote{
		manager: manager,
		session: session,
		logger:  logger,
	}
}

// call resolves the service, performs one JSON request through its handle and
// decodes the response into out (when non-nil).
func (r *remote) call(ctx context.Context, service directory.ServiceName, method, path string, query url.Values, body, out interface{}) error {
	handle, err := r.manager.GetService(ctx, service)
	if err != nil {
		return err
	}

	visitor := &jsonRequestVisitor{
		ctx:     ctx,
		method:  method,
		path:    path,
		query:   query,
		body:    body,
		out:     out,
		session: r.session,
	}

	return handle.ApplyVisitor(visitor)
}

// exists is a convenience for boolean existence checks.
func (r *remote) exists(ctx context.Context, service directory.ServiceName, path string, query url.Values) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	if err := r.call(ctx, service, http.MethodGet, path, query, nil, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

type jsonRequestVisitor struct {
	ctx     context.Context
	method  string
	path    string
	query   url.Values
	body    interface{}
	out     interface{}
	session *auth.Session
}

func (v *jsonRequestVisitor) ProtocolIsHTTP(baseURL string, client *http.Client) error {
	requestURL := baseURL + v.path
	if len(v.query) > 0 {
		requestURL += "?" + v.query.Encode()
	}

	var reqBody io.Reader
	if v.body != nil {
		payload, err := json.Marshal(v.body)
		if err != nil {
			return errors.NewValidationError("failed to marshal request body", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(v.ctx, v.method, requestURL, reqBody)
	if err != nil {
		return errors.NewValidationError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.session != nil {
		v.session.Decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.NewConnectionError("remote call failed", err).
			WithContext("path", v.path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errorFromResponse(resp, v.path)
	}

	if v.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(v.out); err != nil {
			return errors.NewIOError("failed to decode response", err).
				WithContext("path", v.path)
		}
	}

	return nil
}

func (v *jsonRequestVisitor) ProtocolIsGRPC(conn *grpc.ClientConn) error {
	// Business services advertise HTTP endpoints; a gRPC binding here means
	// the directory entry is misconfigured for this gateway.
	return errors.NewValidationError("service is bound over gRPC, gateway speaks HTTP", nil).
		WithContext("path", v.path)
}

func errorFromResponse(resp *http.Response, path string) error {
	var errResp struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&errResp)
	message := errResp.Error
	if message == "" {
		message = fmt.Sprintf("remote call failed with status %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.NewNotFoundError(message, nil).WithContext("path", path)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.NewValidationError(message, nil).WithContext("path", path)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewPermissionError(message, nil).WithContext("path", path)
	case http.StatusConflict:
		return errors.NewConflictError(message, nil).WithContext("path", path)
	default:
		return errors.NewIOError(message, nil).
			WithContext("path", path).
			WithContext("status", resp.StatusCode)
	}
}

// notFoundAsNil converts a not-found error to a nil result, for find-style
// operations that report absence as null rather than failure.
func notFoundAsNil(err error) error {
	if errors.IsNotFoundError(err) {
		return nil
	}
	return err
}
