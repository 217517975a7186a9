package health

import (
	"context"

	"github.com/kailas-cloud/catalogqa/internal/cache"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the service answers but some provider is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates retrieval cannot work at all.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	CheckIndex     = "index"
	CheckCorpus    = "corpus"
	CheckEmbedding = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status     Status                 `json:"status"`
	Checks     map[string]CheckResult `json:"checks"`
	IndexSize  int                    `json:"index_size"`
	CorpusSize int                    `json:"corpus_size"`
	Caches     []cache.Stats          `json:"caches,omitempty"`
}

// Service coordinates health checks.
type Service struct {
	index     IndexSizer
	corpus    CorpusSizer
	pinger    Pinger
	embedding EmbeddingChecker
	caches    CacheReporter
}

// New creates a Service. pinger, embedding and caches can be nil.
func New(index IndexSizer, corpus CorpusSizer, pinger Pinger, embedding EmbeddingChecker, caches CacheReporter) *Service {
	return &Service{index: index, corpus: corpus, pinger: pinger, embedding: embedding, caches: caches}
}

// Check runs health checks against all components. Index and corpus failures
// make the service unhealthy; an embedding failure only degrades it because
// cached embeddings still answer repeated questions.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		Checks:     make(map[string]CheckResult, 3),
		IndexSize:  s.index.Size(),
		CorpusSize: s.corpus.Len(),
	}

	r.Checks[CheckIndex] = CheckOK
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			r.Checks[CheckIndex] = CheckError
		}
	}

	r.Checks[CheckCorpus] = CheckOK
	if r.IndexSize != r.CorpusSize || r.CorpusSize == 0 {
		r.Checks[CheckCorpus] = CheckError
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			r.Checks[CheckEmbedding] = CheckError
		} else {
			r.Checks[CheckEmbedding] = CheckOK
		}
	}

	if s.caches != nil {
		r.Caches = s.caches.CacheStatistics()
	}

	switch {
	case r.Checks[CheckIndex] == CheckError || r.Checks[CheckCorpus] == CheckError:
		r.Status = Unhealthy
	case r.Checks[CheckEmbedding] == CheckError:
		r.Status = Degraded
	default:
		r.Status = Healthy
	}
	return r
}
