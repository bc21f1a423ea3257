package domain

import (
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status    HealthStatusValue `json:"status"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`

	Component string `json:"component,omitempty"`

	LastError     error  `json:"-"` // Don't expose error directly in JSON
	LastErrorText string `json:"last_error,omitempty"`

	ReadCount  int64 `json:"read_count,omitempty"`
	ErrorCount int64 `json:"error_count,omitempty"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatusValue represents the health state
type HealthStatusValue string

const (
	HealthHealthy   HealthStatusValue = "healthy"
	HealthDegraded  HealthStatusValue = "degraded"
	HealthUnhealthy HealthStatusValue = "unhealthy"
	HealthUnknown   HealthStatusValue = "unknown"
)

// String returns the string representation of the health status
func (h HealthStatusValue) String() string {
	return string(h)
}

// IsHealthy returns true if the status represents a healthy state
func (h HealthStatusValue) IsHealthy() bool {
	return h == HealthHealthy
}

// NewHealthStatus creates a new health status with the given values
func NewHealthStatus(status HealthStatusValue, message string) *HealthStatus {
	return &HealthStatus{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
		Details:   make(map[string]interface{}),
	}
}

// NewHealthyStatus creates a healthy status
func NewHealthyStatus(message string) *HealthStatus {
	return NewHealthStatus(HealthHealthy, message)
}

// NewUnhealthyStatus creates an unhealthy status
func NewUnhealthyStatus(message string, err error) *HealthStatus {
	hs := NewHealthStatus(HealthUnhealthy, message)
	if err != nil {
		hs.LastError = err
		hs.LastErrorText = err.Error()
		hs.ErrorCount = 1
	}
	return hs
}

// SetDetail adds a detail to the health status
func (h *HealthStatus) SetDetail(key string, value interface{}) {
	if h.Details == nil {
		h.Details = make(map[string]interface{})
	}
	h.Details[key] = value
}

// IsHealthy returns true if the status is healthy
func (h *HealthStatus) IsHealthy() bool {
	return h.Status.IsHealthy()
}

// HealthChecker is an interface for components that can report health
type HealthChecker interface {
	Health() *HealthStatus
}
