package connection

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ingabireol/bizclient/pkg/directory"
	"github.com/ingabireol/bizclient/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry is an in-memory RegistryClient with call counting.
type fakeRegistry struct {
	mu          sync.Mutex
	bound       map[directory.ServiceName]directory.Endpoint
	lookupCalls map[directory.ServiceName]int
	healthCalls int
	listCalls   int
	healthErr   error
	listErr     error
}

func newFakeRegistry(names ...directory.ServiceName) *fakeRegistry {
	bound := make(map[directory.ServiceName]directory.Endpoint)
	for i, name := range names {
		bound[name] = directory.Endpoint{
			Port:     9000 + i,
			Protocol: directory.ProtocolHTTP,
		}
	}
	return &fakeRegistry{
		bound:       bound,
		lookupCalls: make(map[directory.ServiceName]int),
	}
}

func (f *fakeRegistry) Lookup(ctx context.Context, name directory.ServiceName) (directory.Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookupCalls[name]++

	endpoint, ok := f.bound[name]
	if !ok {
		return directory.Endpoint{}, errors.NewNotFoundError("service not bound", nil).
			WithContext("service", name)
	}
	return endpoint, nil
}

func (f *fakeRegistry) ListServices(ctx context.Context) ([]directory.ServiceName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listCalls++

	if f.listErr != nil {
		return nil, f.listErr
	}

	names := make([]directory.ServiceName, 0, len(f.bound))
	for name := range f.bound {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeRegistry) Health(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.healthCalls++
	return f.healthErr
}

func (f *fakeRegistry) setHealthErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthErr = err
}

func (f *fakeRegistry) lookupCount(name directory.ServiceName) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookupCalls[name]
}

// fakeHandle is a Handle whose liveness is scripted.
type fakeHandle struct {
	name    directory.ServiceName
	mu      sync.Mutex
	pingErr error
	closed  bool
}

func (h *fakeHandle) Name() directory.ServiceName  { return h.name }
func (h *fakeHandle) Protocol() directory.Protocol { return directory.ProtocolHTTP }

func (h *fakeHandle) ApplyVisitor(visitor HandleVisitor) error {
	return visitor.ProtocolIsHTTP("http://fake", http.DefaultClient)
}

func (h *fakeHandle) Ping(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pingErr
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *fakeHandle) setPingErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pingErr = err
}

// countingDialer produces fakeHandles and counts dials per name.
type countingDialer struct {
	mu    sync.Mutex
	dials map[directory.ServiceName]int
}

func newCountingDialer() *countingDialer {
	return &countingDialer{
		dials: make(map[directory.ServiceName]int),
	}
}

func (d *countingDialer) dial(ctx context.Context, name directory.ServiceName, endpoint directory.Endpoint) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[name]++
	return &fakeHandle{name: name}, nil
}

func (d *countingDialer) dialCount(name directory.ServiceName) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[name]
}

// failThenSucceedConnector fails the first n connection attempts.
type failThenSucceedConnector struct {
	mu       sync.Mutex
	failures int
	attempts int
	registry RegistryClient
}

func (c *failThenSucceedConnector) connect(ctx context.Context) (RegistryClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.attempts++
	if c.attempts <= c.failures {
		return nil, errors.NewConnectionError("directory unreachable", nil)
	}
	return c.registry, nil
}

func newTestManager(registry *fakeRegistry, dialer *countingDialer, policy StalenessPolicy) *Manager {
	return NewManager(ManagerOptions{
		Connector: func(ctx context.Context) (RegistryClient, error) {
			return registry, nil
		},
		Dialer: dialer.dial,
		Policy: policy,
	})
}

func allServiceNames() []directory.ServiceName {
	return directory.RequiredServices()
}

func TestCacheHitIsIdempotent(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{})

	ctx := context.Background()

	first, err := manager.CustomerService(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)

	for i := 0; i < 5; i++ {
		again, err := manager.CustomerService(ctx)
		require.NoError(t, err)
		assert.Same(t, first, again, "cache hit must return the identical handle")
	}

	assert.Equal(t, 1, registry.lookupCount(directory.ServiceCustomer))
	assert.Equal(t, 1, dialer.dialCount(directory.ServiceCustomer))
}

func TestClearCacheForcesReResolution(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{})

	ctx := context.Background()

	names := []directory.ServiceName{
		directory.ServiceCustomer,
		directory.ServiceProduct,
		directory.ServiceOrder,
	}

	handles := make(map[directory.ServiceName]Handle)
	for _, name := range names {
		handle, err := manager.GetService(ctx, name)
		require.NoError(t, err)
		handles[name] = handle
	}

	manager.ClearCache()

	for _, name := range names {
		assert.True(t, handles[name].(*fakeHandle).isClosed(), "evicted handle for %s must be closed", name)

		_, err := manager.GetService(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 2, registry.lookupCount(name), "clearCache must force a fresh lookup for %s", name)
	}
}

func TestClearCacheWithNothingEstablished(t *testing.T) {
	registry := newFakeRegistry()
	manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

	assert.NotPanics(t, func() {
		manager.ClearCache()
		manager.ClearCache()
	})
}

func TestValidateServices(t *testing.T) {
	ctx := context.Background()

	t.Run("all seven bound", func(t *testing.T) {
		registry := newFakeRegistry(allServiceNames()...)
		manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

		assert.True(t, manager.ValidateServices(ctx))
	})

	for _, missing := range allServiceNames() {
		t.Run("missing "+string(missing), func(t *testing.T) {
			registry := newFakeRegistry(allServiceNames()...)
			delete(registry.bound, missing)
			manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

			assert.False(t, manager.ValidateServices(ctx))
		})
	}

	t.Run("listing failure yields false", func(t *testing.T) {
		registry := newFakeRegistry(allServiceNames()...)
		registry.listErr = errors.NewConnectionError("directory unreachable", nil)
		manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

		assert.False(t, manager.ValidateServices(ctx))
	})
}

func TestUnreachableRegistryYieldsSafeDefaults(t *testing.T) {
	manager := NewManager(ManagerOptions{
		Connector: func(ctx context.Context) (RegistryClient, error) {
			return nil, errors.NewConnectionError("directory unreachable", nil)
		},
		Dialer: newCountingDialer().dial,
	})

	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.False(t, manager.TestConnection(ctx))
		assert.False(t, manager.IsConnected(ctx))
		assert.Empty(t, manager.ListAvailableServices(ctx))
		assert.False(t, manager.ValidateServices(ctx))

		handle, err := manager.CustomerService(ctx)
		assert.Nil(t, handle)
		assert.Error(t, err)

		resolution := manager.Resolve(ctx, directory.ServiceCustomer)
		assert.Equal(t, StatusUnreachable, resolution.Status)
	})
}

func TestReconnectRecoversAfterFailure(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	connector := &failThenSucceedConnector{failures: 1, registry: registry}

	manager := NewManager(ManagerOptions{
		Connector: connector.connect,
		Dialer:    dialer.dial,
	})

	ctx := context.Background()

	require.False(t, manager.InitializeConnection(ctx), "first attempt must fail")

	require.True(t, manager.Reconnect(ctx), "second attempt must succeed")

	handle, err := manager.OrderService(ctx)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, 1, dialer.dialCount(directory.ServiceOrder))
}

func TestReconnectWithRetryBacksOffUntilSuccess(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	connector := &failThenSucceedConnector{failures: 2, registry: registry}

	manager := NewManager(ManagerOptions{
		Connector:                connector.connect,
		Dialer:                   newCountingDialer().dial,
		ReconnectInitialInterval: time.Millisecond,
		ReconnectMaxAttempts:     4,
	})

	require.NoError(t, manager.ReconnectWithRetry(context.Background()))
	assert.Equal(t, 3, connector.attempts)
}

func TestReconnectWithRetryCapsTotalAttempts(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	connector := &failThenSucceedConnector{failures: 100, registry: registry}

	manager := NewManager(ManagerOptions{
		Connector:                connector.connect,
		Dialer:                   newCountingDialer().dial,
		ReconnectInitialInterval: time.Millisecond,
		ReconnectMaxAttempts:     3,
	})

	err := manager.ReconnectWithRetry(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, connector.attempts, "max attempts counts the first try")
}

func TestConcurrentFirstAccessResolvesOnce(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{})

	ctx := context.Background()

	const callers = 64

	var wg sync.WaitGroup
	handles := make([]Handle, callers)
	errs := make([]error, callers)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			handles[i], errs[i] = manager.InvoiceService(ctx)
		}(i)
	}

	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, handles[i])
	}

	assert.Equal(t, 1, registry.lookupCount(directory.ServiceInvoice), "resolution must happen exactly once")
	assert.Equal(t, 1, dialer.dialCount(directory.ServiceInvoice))

	for i := 1; i < callers; i++ {
		assert.Same(t, handles[0], handles[i], "all callers must observe the same cached handle")
	}
}

func TestResolveDistinguishesNotBoundFromUnreachable(t *testing.T) {
	ctx := context.Background()

	t.Run("not bound", func(t *testing.T) {
		registry := newFakeRegistry() // reachable, nothing bound
		manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

		resolution := manager.Resolve(ctx, directory.ServicePayment)
		assert.Equal(t, StatusNotBound, resolution.Status)
		assert.Nil(t, resolution.Handle)
	})

	t.Run("unreachable", func(t *testing.T) {
		manager := NewManager(ManagerOptions{
			Connector: func(ctx context.Context) (RegistryClient, error) {
				return nil, errors.NewConnectionError("directory unreachable", nil)
			},
			Dialer: newCountingDialer().dial,
		})

		resolution := manager.Resolve(ctx, directory.ServicePayment)
		assert.Equal(t, StatusUnreachable, resolution.Status)
	})

	t.Run("unknown name", func(t *testing.T) {
		registry := newFakeRegistry(allServiceNames()...)
		manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

		resolution := manager.Resolve(ctx, directory.ServiceName("warehouse"))
		assert.Equal(t, StatusNotBound, resolution.Status)
		assert.Error(t, resolution.Err)
	})
}

func TestFailedResolutionLeavesCacheUnchanged(t *testing.T) {
	registry := newFakeRegistry() // reachable, nothing bound
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{})

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resolution := manager.Resolve(ctx, directory.ServiceUser)
		assert.Equal(t, StatusNotBound, resolution.Status)
	}

	// No negative caching: every attempt goes back to the directory.
	assert.Equal(t, 3, registry.lookupCount(directory.ServiceUser))
	assert.Equal(t, 0, dialer.dialCount(directory.ServiceUser))
}

func TestTTLPolicyEvictsExpiredHandles(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{TTL: 10 * time.Millisecond})

	ctx := context.Background()

	first, err := manager.ProductService(ctx)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	second, err := manager.ProductService(ctx)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.True(t, first.(*fakeHandle).isClosed())
	assert.Equal(t, 2, dialer.dialCount(directory.ServiceProduct))
}

func TestPingOnGetPolicyEvictsFailingHandles(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{PingOnGet: true})

	ctx := context.Background()

	first, err := manager.SupplierService(ctx)
	require.NoError(t, err)

	// Healthy handle keeps being served.
	again, err := manager.SupplierService(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	first.(*fakeHandle).setPingErr(errors.NewConnectionError("connection reset", nil))

	second, err := manager.SupplierService(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, dialer.dialCount(directory.ServiceSupplier))
}

func TestDefaultPolicyKeepsFailingHandleCached(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	dialer := newCountingDialer()
	manager := newTestManager(registry, dialer, StalenessPolicy{})

	ctx := context.Background()

	handle, err := manager.CustomerService(ctx)
	require.NoError(t, err)

	// A handle that starts failing stays cached until explicit invalidation.
	handle.(*fakeHandle).setPingErr(errors.NewConnectionError("connection reset", nil))

	again, err := manager.CustomerService(ctx)
	require.NoError(t, err)
	assert.Same(t, handle, again)
	assert.Equal(t, 1, dialer.dialCount(directory.ServiceCustomer))
}

func TestIsConnectedIsALiveCheck(t *testing.T) {
	registry := newFakeRegistry(allServiceNames()...)
	manager := newTestManager(registry, newCountingDialer(), StalenessPolicy{})

	ctx := context.Background()

	require.True(t, manager.InitializeConnection(ctx))
	assert.True(t, manager.IsConnected(ctx))

	registry.setHealthErr(errors.NewConnectionError("connection refused", nil))
	assert.False(t, manager.IsConnected(ctx), "IsConnected must pay a fresh round trip")

	registry.setHealthErr(nil)

	// The failed check dropped the connection; IsConnected reports absence
	// until the next TestConnection re-establishes it.
	assert.False(t, manager.IsConnected(ctx))
	assert.True(t, manager.TestConnection(ctx))
	assert.True(t, manager.IsConnected(ctx))
}
