package observability

import (
	"time"

	"github.com/danmuck/tlvwire/internal/bufpool"
	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/validation"
)

// ValidationObserver feeds validator outcomes into Prometheus.
type ValidationObserver struct{}

var _ validation.Observer = ValidationObserver{}

func (ValidationObserver) MessageValidated(domain protocol.RelayDomain, level validation.Level, elapsed time.Duration, err error) {
	result, kind := "ok", ""
	switch {
	case err == nil:
	case validation.IsAdvisory(err):
		result = "advisory"
	default:
		result, kind = "rejected", validation.KindOf(err).String()
	}
	RecordValidation(domain.String(), level.String(), result, kind, elapsed)
}

func (ValidationObserver) PoolQueued(instrument.Address) {
	RecordDiscoveryQueued()
}

func DiscoveryResultHook() discovery.ResultHook {
	return func(_ instrument.Address, result string) {
		RecordDiscoveryResult(result)
	}
}

func BufpoolFailureHook() bufpool.FailureHook {
	return func(tier bufpool.Tier, reason string) {
		RecordBufpoolFailure(tier.String(), reason)
	}
}
