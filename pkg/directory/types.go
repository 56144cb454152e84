package directory

import (
	"time"
)

// ServiceName identifies one of the remote business services.
type ServiceName string

const (
	ServiceUser     ServiceName = "user"
	ServiceCustomer ServiceName = "customer"
	ServiceProduct  ServiceName = "product"
	ServiceSupplier ServiceName = "supplier"
	ServiceOrder    ServiceName = "order"
	ServiceInvoice  ServiceName = "invoice"
	ServicePayment  ServiceName = "payment"
)

// RequiredServices is the fixed set every deployment must advertise. The set is
// closed: clients never discover service names dynamically.
func RequiredServices() []ServiceName {
	return []ServiceName{
		ServiceUser,
		ServiceCustomer,
		ServiceProduct,
		ServiceSupplier,
		ServiceOrder,
		ServiceInvoice,
		ServicePayment,
	}
}

// Protocol selects how a bound service endpoint is spoken to.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolGRPC Protocol = "grpc"
)

// Endpoint describes where and how a bound service is reachable.
type Endpoint struct {
	Address  string            `json:"address,omitempty"` // Empty means localhost
	Port     int               `json:"port"`
	Protocol Protocol          `json:"protocol"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ServiceBinding is a complete directory entry for one service name.
type ServiceBinding struct {
	Name      ServiceName `json:"name"`
	Endpoint  Endpoint    `json:"endpoint"`
	ProcessID int         `json:"processID"`
	BoundAt   time.Time   `json:"boundAt"`
	LastSeen  time.Time   `json:"lastSeen"`
}

// BindRequest is the request format for binding a service.
type BindRequest struct {
	Name      ServiceName `json:"name"`
	ProcessID int         `json:"processID"`
	Endpoint  Endpoint    `json:"endpoint"`
}

// LookupResponse is the response format for endpoint lookups.
type LookupResponse struct {
	Name     ServiceName `json:"name"`
	Endpoint Endpoint    `json:"endpoint"`
}

// ListResponse is the response format for the bound-name listing.
type ListResponse struct {
	Services []ServiceName `json:"services"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Context interface{} `json:"context,omitempty"`
}

// HealthResponse is the response format for health checks.
type HealthResponse struct {
	Status        string `json:"status"`
	BoundServices int    `json:"boundServices"`
	Uptime        string `json:"uptime"`
}
