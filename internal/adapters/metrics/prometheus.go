package metrics

import (
	"fluxfill/internal/core/domain"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records tool activity on its own registry.
type Prometheus struct {
	registry        *prometheus.Registry
	reconciliations *prometheus.CounterVec
	providerErrors  *prometheus.CounterVec
	invocations     *prometheus.CounterVec
}

func NewPrometheus(namespace string) *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mask_reconciliations_total",
			Help:      "Mask reconciliations by outcome",
		}, []string{"outcome"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Errors reported by the remote model by category",
		}, []string{"category"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Tool invocations by final status",
		}, []string{"status"}),
	}

	p.registry.MustRegister(p.reconciliations, p.providerErrors, p.invocations)

	return p
}

func (p *Prometheus) ObserveReconciliation(outcome domain.Outcome) {
	p.reconciliations.WithLabelValues(string(outcome)).Inc()
}

func (p *Prometheus) ObserveProviderError(category domain.ProviderCategory) {
	p.providerErrors.WithLabelValues(string(category)).Inc()
}

func (p *Prometheus) ObserveInvocation(status string) {
	p.invocations.WithLabelValues(status).Inc()
}

// Handler exposes the registry for scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
