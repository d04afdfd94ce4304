package models

import "time"

// SystemMetrics is a lightweight snapshot of service instrumentation.
type SystemMetrics struct {
	CacheHitRatio             float64   `json:"cache_hit_ratio"`
	CacheHits                 uint64    `json:"cache_hits"`
	CacheMisses               uint64    `json:"cache_misses"`
	RequestsTotal             uint64    `json:"requests_total"`
	AverageRequestDurationMs  float64   `json:"average_request_duration_ms"`
	CatalogQueryCount         uint64    `json:"catalog_query_count"`
	GenerationsTotal          uint64    `json:"generations_total"`
	GenerationFallbacks       uint64    `json:"generation_fallbacks"`
	AverageGenerationDuration float64   `json:"average_generation_duration_ms"`
	Goroutines                int       `json:"goroutines"`
	GeneratedAt               time.Time `json:"generated_at"`
}
