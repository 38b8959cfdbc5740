package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Detail      string `json:"detail,omitempty"`
}

// MetricsSnapshot is returned by GET /v1/metrics/cobranca.
type MetricsSnapshot struct {
	BoletosGerados     int64   `json:"boletosGerados"`
	RemessasGeradas    int64   `json:"remessasGeradas"`
	RetornoEntries     int64   `json:"retornoEntries"`
	AdapterFallbacks   int64   `json:"adapterFallbacks"`
	RetornosMalformed  int64   `json:"retornosMalformed"`
	ValidationFailures int64   `json:"validationFailures"`
	ExternalErrors     int64   `json:"externalErrors"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	Period             string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// RetornoResult is returned by POST /retorno/.
type RetornoResult struct {
	Layout    string         `json:"layout"`
	Banco     string         `json:"banco"`
	Entries   []RetornoEntry `json:"entries"`
	Aplicados int            `json:"aplicados"`
	Ignorados int            `json:"ignorados"`
}

// ValidarResponse is returned by POST /boletos/validar.
type ValidarResponse struct {
	Report    ValidationReport `json:"report"`
	BankRules BankRuleResult   `json:"bank_rules"`
}
