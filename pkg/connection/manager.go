package connection

import (
	"context"
	"sync"
	"time"

	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// Status classifies the outcome of a service resolution, so callers can decide
// between retrying the whole connection and re-checking the service directory.
type Status string

const (
	// StatusResolved means the handle is usable.
	StatusResolved Status = "resolved"
	// StatusNotBound means the directory is reachable but does not advertise the name.
	StatusNotBound Status = "not_bound"
	// StatusUnreachable means the directory itself could not be reached.
	StatusUnreachable Status = "unreachable"
)

// Resolution is the tagged result of Resolve.
type Resolution struct {
	Status Status
	Handle Handle
	Err    error
}

// StalenessPolicy controls when a cached handle stops being served. The zero
// value keeps handles until explicit invalidation: a handle that starts
// failing stays cached until someone reconnects.
type StalenessPolicy struct {
	// TTL evicts handles older than the given age on access. Zero disables it.
	TTL time.Duration
	// PingOnGet health-checks a cached handle before serving it and evicts on
	// failure. Every cache hit then pays a round trip.
	PingOnGet bool
}

// ConnectorFunc establishes the directory connection. Overridable for tests.
type ConnectorFunc func(ctx context.Context) (RegistryClient, error)

// ManagerOptions configures a connection Manager.
type ManagerOptions struct {
	// DirectoryURL locates the service directory (unix:///path or tcp://host:port).
	DirectoryURL string
	// DirectoryTimeout bounds every directory HTTP call.
	DirectoryTimeout time.Duration
	// Connector overrides how the directory client is built.
	Connector ConnectorFunc
	// Dialer overrides how endpoints become handles.
	Dialer DialFunc
	// Dial tunes the default dialer; ignored when Dialer is set.
	Dial DialOptions
	// Policy governs cached-handle staleness.
	Policy StalenessPolicy
	// ReconnectInitialInterval seeds the exponential backoff of ReconnectWithRetry.
	ReconnectInitialInterval time.Duration
	// ReconnectMaxAttempts caps the total attempts of ReconnectWithRetry.
	ReconnectMaxAttempts uint64
	Logger               logging.Logger
}

func (o *ManagerOptions) OptLogger() logging.Logger {
	if o.Logger == nil {
		return logging.NewNullLogger()
	}
	return o.Logger
}

func (o *ManagerOptions) OptReconnectInitialInterval() time.Duration {
	if o.ReconnectInitialInterval == 0 {
		return 500 * time.Millisecond
	}
	return o.ReconnectInitialInterval
}

func (o *ManagerOptions) OptReconnectMaxAttempts() uint64 {
	if o.ReconnectMaxAttempts == 0 {
		return 5
	}
	return o.ReconnectMaxAttempts
}

// Manager owns the directory connection and the service handle cache. It is
// shared by every interactive flow in the process and is safe for concurrent
// use: cache mutation is serialized, cached reads do not block each other, and
// concurrent first access to one name resolves exactly once.
//
// All failure paths return booleans or tagged resolutions and log the cause;
// nothing here panics or propagates transport errors. Business-call failures
// through a resolved handle are the caller's concern and never evict the
// handle under the default policy.
type Manager struct {
	options   ManagerOptions
	connector ConnectorFunc
	dialer    DialFunc
	logger    logging.Logger

	connMu   sync.Mutex
	registry RegistryClient

	cacheMu sync.RWMutex
	handles map[directory.ServiceName]*cacheEntry

	group singleflight.Group
}

type cacheEntry struct {
	handle     Handle
	resolvedAt time.Time
}

// NewManager creates a connection manager. Construct one at startup and pass
// it to every controller; there is no package-level instance.
func NewManager(options ManagerOptions) *Manager {
	logger := options.OptLogger()

	connector := options.Connector
	if connector == nil {
		connector = func(ctx context.Context) (RegistryClient, error) {
			return NewRegistryClient(RegistryClientOptions{
				URL:     options.DirectoryURL,
				Timeout: options.DirectoryTimeout,
				Logger:  logger,
			})
		}
	}

	dialer := options.Dialer
	if dialer == nil {
		dialer = NewDialer(options.Dial, logger)
	}

	return &Manager{
		options:   options,
		connector: connector,
		dialer:    dialer,
		logger:    logger,
		handles:   make(map[directory.ServiceName]*cacheEntry),
	}
}

// InitializeConnection attempts to open the directory connection and verifies
// reachability with a health call. Re-entrant: calling it again re-attempts
// and overwrites, so it also serves as the reconnect primitive. The boolean is
// the only failure signal; the cause is logged.
func (m *Manager) InitializeConnection(ctx context.Context) bool {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	client, err := m.connector(ctx)
	if err != nil {
		m.logger.Errorf("Failed to create directory client: %v", err)
		m.registry = nil
		return false
	}

	if err := client.Health(ctx); err != nil {
		m.logger.Errorf("Service directory is unreachable: %v", err)
		m.registry = nil
		return false
	}

	m.registry = client
	m.logger.Infof("Connected to service directory")

	return true
}

func (m *Manager) currentRegistry() RegistryClient {
	m.connMu.Lock()
	defer m.connMu.Unlock()
	return m.registry
}

func (m *Manager) ensureConnection(ctx context.Context) RegistryClient {
	if registry := m.currentRegistry(); registry != nil {
		return registry
	}
	if !m.InitializeConnection(ctx) {
		return nil
	}
	return m.currentRegistry()
}

// Resolve returns the handle for a service name, resolving and caching on
// miss. The tagged status distinguishes a directory that is down from a name
// that is simply not bound. A failed resolution leaves the cache unchanged.
func (m *Manager) Resolve(ctx context.Context, name directory.ServiceName) Resolution {
	if !isRequiredService(name) {
		return Resolution{
			Status: StatusNotBound,
			Err: errors.NewValidationError("unknown service name", nil).
				WithContext("service", name),
		}
	}

	if handle := m.cachedFresh(ctx, name); handle != nil {
		return Resolution{Status: StatusResolved, Handle: handle}
	}

	value, err, _ := m.group.Do(string(name), func() (interface{}, error) {
		// A concurrent caller may have populated the cache while this flight
		// was queued.
		if handle := m.cachedFresh(ctx, name); handle != nil {
			return handle, nil
		}

		registry := m.ensureConnection(ctx)
		if registry == nil {
			return nil, errors.NewConnectionError("service directory is unreachable", nil).
				WithContext("service", name)
		}

		endpoint, err := registry.Lookup(ctx, name)
		if err != nil {
			m.logger.Errorf("Failed to resolve service %s: %v", name, err)
			return nil, err
		}

		handle, err := m.dialer(ctx, name, endpoint)
		if err != nil {
			m.logger.Errorf("Failed to connect to service %s: %v", name, err)
			return nil, err
		}

		m.cacheMu.Lock()
		m.handles[name] = &cacheEntry{
			handle:     handle,
			resolvedAt: time.Now(),
		}
		m.cacheMu.Unlock()

		m.logger.Infof("Resolved and cached service %s", name)

		return handle, nil
	})

	if err != nil {
		status := StatusUnreachable
		if errors.IsNotFoundError(err) {
			status = StatusNotBound
		}
		return Resolution{Status: status, Err: err}
	}

	return Resolution{Status: StatusResolved, Handle: value.(Handle)}
}

// cachedFresh returns the cached handle for name if present and still fresh
// under the staleness policy, evicting it otherwise.
func (m *Manager) cachedFresh(ctx context.Context, name directory.ServiceName) Handle {
	m.cacheMu.RLock()
	entry := m.handles[name]
	m.cacheMu.RUnlock()

	if entry == nil {
		return nil
	}

	policy := m.options.Policy

	if policy.TTL > 0 && time.Since(entry.resolvedAt) > policy.TTL {
		m.logger.Debugf("Cached handle for %s expired after %s", name, policy.TTL)
		m.evict(name, entry)
		return nil
	}

	if policy.PingOnGet {
		if err := entry.handle.Ping(ctx); err != nil {
			m.logger.Warnf("Cached handle for %s failed health check: %v", name, err)
			m.evict(name, entry)
			return nil
		}
	}

	return entry.handle
}

func (m *Manager) evict(name directory.ServiceName, entry *cacheEntry) {
	m.cacheMu.Lock()
	if m.handles[name] == entry {
		delete(m.handles, name)
	}
	m.cacheMu.Unlock()

	if err := entry.handle.Close(); err != nil {
		m.logger.Warnf("Failed to close evicted handle for %s: %v", name, err)
	}
}

// GetService collapses Resolve to handle-or-error for callers that do not care
// about the unreachable/not-bound distinction.
func (m *Manager) GetService(ctx context.Context, name directory.ServiceName) (Handle, error) {
	resolution := m.Resolve(ctx, name)
	if resolution.Status != StatusResolved {
		return nil, resolution.Err
	}
	return resolution.Handle, nil
}

// Per-name convenience accessors.

func (m *Manager) UserService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceUser)
}

func (m *Manager) CustomerService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceCustomer)
}

func (m *Manager) ProductService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceProduct)
}

func (m *Manager) SupplierService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceSupplier)
}

func (m *Manager) OrderService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceOrder)
}

func (m *Manager) InvoiceService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServiceInvoice)
}

func (m *Manager) PaymentService(ctx context.Context) (Handle, error) {
	return m.GetService(ctx, directory.ServicePayment)
}

// ClearCache drops every cached handle and the directory connection, forcing
// full re-resolution on next access. Safe to call with nothing established.
func (m *Manager) ClearCache() {
	m.cacheMu.Lock()
	evicted := m.handles
	m.handles = make(map[directory.ServiceName]*cacheEntry)
	m.cacheMu.Unlock()

	for name, entry := range evicted {
		if err := entry.handle.Close(); err != nil {
			m.logger.Warnf("Failed to close handle for %s: %v", name, err)
		}
	}

	m.connMu.Lock()
	m.registry = nil
	m.connMu.Unlock()

	if len(evicted) > 0 {
		m.logger.Infof("Cleared %d cached service handles", len(evicted))
	}
}

// TestConnection answers "is the directory reachable right now" with a cheap
// health call, establishing the connection first if absent. A failed check
// drops the connection, so the next access re-establishes it.
func (m *Manager) TestConnection(ctx context.Context) bool {
	registry := m.currentRegistry()
	if registry == nil {
		return m.InitializeConnection(ctx)
	}

	if err := registry.Health(ctx); err != nil {
		m.logger.Warnf("Directory connection test failed: %v", err)
		m.connMu.Lock()
		if m.registry == registry {
			m.registry = nil
		}
		m.connMu.Unlock()
		return false
	}

	return true
}

// IsConnected composes presence of a directory connection with a fresh
// TestConnection call. This is a live check, never a cached flag: every call
// pays a round trip.
func (m *Manager) IsConnected(ctx context.Context) bool {
	if m.currentRegistry() == nil {
		return false
	}
	return m.TestConnection(ctx)
}

// ValidateServices confirms every required service is currently advertised by
// the directory. The first missing name is logged. A failure to list yields
// false rather than an error.
func (m *Manager) ValidateServices(ctx context.Context) bool {
	registry := m.ensureConnection(ctx)
	if registry == nil {
		return false
	}

	available, err := registry.ListServices(ctx)
	if err != nil {
		m.logger.Errorf("Failed to list directory services: %v", err)
		return false
	}

	bound := make(map[directory.ServiceName]bool, len(available))
	for _, name := range available {
		bound[name] = true
	}

	for _, required := range directory.RequiredServices() {
		if !bound[required] {
			m.logger.Errorf("Required service %s is not bound", required)
			return false
		}
	}

	return true
}

// ListAvailableServices returns the raw bound-name list, or an empty list if
// the directory cannot be reached. Callers distinguishing "empty because
// unreachable" from "empty because misconfigured" should check IsConnected.
func (m *Manager) ListAvailableServices(ctx context.Context) []directory.ServiceName {
	registry := m.ensureConnection(ctx)
	if registry == nil {
		return []directory.ServiceName{}
	}

	available, err := registry.ListServices(ctx)
	if err != nil {
		m.logger.Warnf("Failed to list directory services: %v", err)
		return []directory.ServiceName{}
	}

	return available
}

// Reconnect drops all cached state and re-establishes the directory
// connection. It restores connectivity only; callers re-issue whatever load
// they were attempting.
func (m *Manager) Reconnect(ctx context.Context) bool {
	m.logger.Infof("Reconnecting to service directory")
	m.ClearCache()
	return m.InitializeConnection(ctx)
}

// ReconnectWithRetry wraps Reconnect in exponential backoff, centralizing the
// retry loop every interactive screen used to duplicate.
func (m *Manager) ReconnectWithRetry(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.options.OptReconnectInitialInterval()

	operation := func() error {
		if !m.Reconnect(ctx) {
			return errors.NewConnectionError("reconnect attempt failed", nil)
		}
		return nil
	}

	// WithMaxRetries counts retries after the first attempt, so the cap on
	// total attempts is one higher.
	maxRetries := m.options.OptReconnectMaxAttempts() - 1

	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, maxRetries), ctx))
}

// Close releases every cached handle. The manager is unusable afterwards only
// by convention; a subsequent access would reconnect.
func (m *Manager) Close() {
	m.ClearCache()
}

func isRequiredService(name directory.ServiceName) bool {
	for _, required := range directory.RequiredServices() {
		if required == name {
			return true
		}
	}
	return false
}
