package catalogqa

import (
	"context"

	healthuc "github.com/kailas-cloud/catalogqa/internal/usecase/health"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status     string            // "ok", "degraded", "error"
	Checks     map[string]string // component → "ok"/"error"
	IndexSize  int
	CorpusSize int
}

// Health checks the index, the corpus and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status:     string(report.Status),
		Checks:     checks,
		IndexSize:  report.IndexSize,
		CorpusSize: report.CorpusSize,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
