package interceptors

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
)

// MetricsData holds metrics information for gRPC calls
type MetricsData struct {
	RequestCount    int64         `json:"request_count"`
	SuccessCount    int64         `json:"success_count"`
	ErrorCount      int64         `json:"error_count"`
	TotalDuration   time.Duration `json:"total_duration"`
	AverageDuration time.Duration `json:"average_duration"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// MetricsCollector collects per-method call metrics
type MetricsCollector struct {
	methods map[string]*MetricsData
	mu      sync.Mutex
}

// NewMetricsCollector creates an empty collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		methods: make(map[string]*MetricsData),
	}
}

// RecordMetrics records one call of method
func (c *MetricsCollector) RecordMetrics(method string, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, exists := c.methods[method]
	if !exists {
		m = &MetricsData{}
		c.methods[method] = m
	}

	m.RequestCount++
	m.TotalDuration += duration
	m.AverageDuration = m.TotalDuration / time.Duration(m.RequestCount)
	m.LastUpdated = time.Now()

	if err != nil {
		m.ErrorCount++
	} else {
		m.SuccessCount++
	}
}

// Snapshot returns a copy of all collected metrics keyed by full method name
func (c *MetricsCollector) Snapshot() map[string]MetricsData {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]MetricsData, len(c.methods))
	for method, m := range c.methods {
		result[method] = *m
	}
	return result
}

// MetricsInterceptor returns a gRPC unary interceptor that records into collector
func MetricsInterceptor(collector *MetricsCollector) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()
		resp, err := handler(ctx, req)
		collector.RecordMetrics(info.FullMethod, time.Since(startTime), err)
		return resp, err
	}
}
