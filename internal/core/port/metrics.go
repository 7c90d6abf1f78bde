package port

import "fluxfill/internal/core/domain"

type Recorder interface {
	ObserveReconciliation(outcome domain.Outcome)
	ObserveProviderError(category domain.ProviderCategory)
	ObserveInvocation(status string)
}
