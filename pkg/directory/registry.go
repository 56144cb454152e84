package directory

import (
	"time"

	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"

	"sync"
)

// RegistryOptions tunes staleness handling for the in-memory registry.
type RegistryOptions struct {
	// StaleAfter is the age past which a binding stops being served by Lookup.
	StaleAfter time.Duration
	// SweepInterval controls the background purge of dead bindings.
	SweepInterval time.Duration
	// PurgeAfter is the age at which the sweep removes a binding entirely.
	PurgeAfter time.Duration
}

func (o *RegistryOptions) optStaleAfter() time.Duration {
	if o.StaleAfter == 0 {
		return 5 * time.Minute
	}
	return o.StaleAfter
}

func (o *RegistryOptions) optSweepInterval() time.Duration {
	if o.SweepInterval == 0 {
		return 1 * time.Minute
	}
	return o.SweepInterval
}

func (o *RegistryOptions) optPurgeAfter() time.Duration {
	if o.PurgeAfter == 0 {
		return 10 * time.Minute
	}
	return o.PurgeAfter
}

// Registry manages service bindings in memory.
type Registry struct {
	bindings  map[ServiceName]*ServiceBinding
	mu        sync.RWMutex
	options   RegistryOptions
	logger    logging.Logger
	startTime time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewRegistry creates a new service directory registry.
func NewRegistry(options RegistryOptions, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	r := &Registry{
		bindings:  make(map[ServiceName]*ServiceBinding),
		options:   options,
		logger:    logger,
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	go r.sweepLoop()

	return r
}

// Bind registers or updates a service binding.
func (r *Registry) Bind(req BindRequest) error {
	if req.Name == "" {
		return errors.NewValidationError("service name is required", nil)
	}
	if req.Endpoint.Port <= 0 || req.Endpoint.Port > 65535 {
		return errors.NewValidationError("invalid endpoint port", nil).
			WithContext("service", req.Name).
			WithContext("port", req.Endpoint.Port)
	}
	if req.Endpoint.Protocol != ProtocolHTTP && req.Endpoint.Protocol != ProtocolGRPC {
		return errors.NewValidationError("unsupported endpoint protocol", nil).
			WithContext("service", req.Name).
			WithContext("protocol", req.Endpoint.Protocol)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	// Rebinding preserves the original bind time
	existing, exists := r.bindings[req.Name]
	boundAt := now
	if exists {
		boundAt = existing.BoundAt
	}

	r.bindings[req.Name] = &ServiceBinding{
		Name:      req.Name,
		Endpoint:  req.Endpoint,
		ProcessID: req.ProcessID,
		BoundAt:   boundAt,
		LastSeen:  now,
	}

	if exists {
		r.logger.Infof("Rebound service %s at port %d", req.Name, req.Endpoint.Port)
	} else {
		r.logger.Infof("Bound service %s at port %d, processID=%d", req.Name, req.Endpoint.Port, req.ProcessID)
	}

	return nil
}

// Lookup retrieves the endpoint for a bound service name. A successful lookup
// refreshes the binding's last-seen time, so lookup doubles as a heartbeat.
func (r *Registry) Lookup(name ServiceName) (Endpoint, error) {
	if name == "" {
		return Endpoint{}, errors.NewValidationError("service name is required", nil)
	}

	// The staleness decision and the heartbeat refresh read and write the same
	// binding, so both stay inside one critical section.
	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[name]
	if !ok {
		return Endpoint{}, errors.NewNotFoundError("service not bound", nil).
			WithContext("service", name)
	}

	if time.Since(binding.LastSeen) > r.options.optStaleAfter() {
		r.logger.Warnf("Binding for %s is stale (last seen: %s)", name, binding.LastSeen)
		return Endpoint{}, errors.NewNotFoundError("service binding is stale", nil).
			WithContext("service", name).
			WithContext("last_seen", binding.LastSeen)
	}

	binding.LastSeen = time.Now()

	r.logger.Debugf("Resolved service %s to port %d", name, binding.Endpoint.Port)

	return binding.Endpoint, nil
}

// Unbind removes a service binding. Idempotent: unbinding an absent name is not
// an error. If processID is non-zero it must match the binding's owner.
func (r *Registry) Unbind(name ServiceName, processID int) error {
	if name == "" {
		return errors.NewValidationError("service name is required", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	binding, ok := r.bindings[name]
	if !ok {
		return nil
	}

	if processID != 0 && binding.ProcessID != processID {
		return errors.NewValidationError("process ID mismatch", nil).
			WithContext("service", name).
			WithContext("expected_process_id", binding.ProcessID).
			WithContext("actual_process_id", processID)
	}

	delete(r.bindings, name)
	r.logger.Infof("Unbound service %s", name)

	return nil
}

// ListServices returns all currently bound service names.
func (r *Registry) ListServices() []ServiceName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]ServiceName, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}

	return names
}

// GetBinding returns the full binding for a service (for debugging/admin).
func (r *Registry) GetBinding(name ServiceName) (*ServiceBinding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	binding, ok := r.bindings[name]
	if !ok {
		return nil, errors.NewNotFoundError("service not bound", nil).
			WithContext("service", name)
	}

	bindingCopy := *binding
	return &bindingCopy, nil
}

// GetStats returns directory statistics.
func (r *Registry) GetStats() (boundServices int, uptime time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.bindings), time.Since(r.startTime)
}

// Stop stops the registry and its sweep goroutine.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.options.optSweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.purgeDead(r.options.optPurgeAfter())
		case <-r.stopChan:
			r.logger.Infof("Directory sweep loop stopped")
			return
		}
	}
}

func (r *Registry) purgeDead(maxAge time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := make([]ServiceName, 0)

	for name, binding := range r.bindings {
		if now.Sub(binding.LastSeen) > maxAge {
			delete(r.bindings, name)
			removed = append(removed, name)
		}
	}

	if len(removed) > 0 {
		r.logger.Warnf("Purged %d dead bindings: %v", len(removed), removed)
	}
}
