package health

import "context"

// CachePinger checks cache store availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// ExtractionChecker checks extraction provider availability.
type ExtractionChecker interface {
	HealthCheck(ctx context.Context) error
}
