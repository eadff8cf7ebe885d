package aggregate

// ServiceTotals accumulates per-service spend while preserving first-seen
// order. Map iteration order would shuffle reports (and top-driver
// tie-breaks) between runs, so the key order is tracked explicitly.
type ServiceTotals struct {
	order  []string
	totals map[string]float64
}

// NewServiceTotals returns an empty accumulator.
func NewServiceTotals() *ServiceTotals {
	return &ServiceTotals{totals: make(map[string]float64)}
}

// Add folds amount into the service's running subtotal, registering the
// service on first sight.
func (s *ServiceTotals) Add(service string, amount float64) {
	if _, ok := s.totals[service]; !ok {
		s.order = append(s.order, service)
	}
	s.totals[service] += amount
}

// Get returns the subtotal for a service (zero if unseen).
func (s *ServiceTotals) Get(service string) float64 {
	return s.totals[service]
}

// Services returns the service names in first-insertion order.
func (s *ServiceTotals) Services() []string {
	return s.order
}

// Len returns the number of distinct services.
func (s *ServiceTotals) Len() int {
	return len(s.order)
}

// Sum returns the total across all services.
func (s *ServiceTotals) Sum() float64 {
	var sum float64
	for _, v := range s.totals {
		sum += v
	}
	return sum
}

// Each calls fn for every service in first-insertion order.
func (s *ServiceTotals) Each(fn func(service string, amount float64)) {
	for _, svc := range s.order {
		fn(svc, s.totals[svc])
	}
}

// ToMap returns a plain map copy for serialization.
func (s *ServiceTotals) ToMap() map[string]float64 {
	out := make(map[string]float64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out
}
