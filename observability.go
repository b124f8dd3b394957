package codapmeta

import (
	"sync"
	"time"
)

// AdvisoryHeaders carries the relay's version signals from response
// headers. Raw header strings, empty when absent. Advisory only: they are
// surfaced for diagnostics and never drive classification.
type AdvisoryHeaders struct {
	APIVersion          string
	ToolManifestVersion string
	SupportedVersions   string
}

// Exchange captures one completed HTTP exchange against the metadata
// endpoint.
type Exchange struct {
	Method           string
	URL              string
	StatusCode       int
	Duration         time.Duration
	RequestedVersion string
	Advisory         AdvisoryHeaders
	// Err is the classified error for this exchange, nil on success.
	Err error
}

// Observer receives client-level observability events.
type Observer interface {
	ObserveExchange(exchange Exchange)
}

type noopObserver struct{}

func (noopObserver) ObserveExchange(Exchange) {}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide client observability observer.
// Passing nil restores the no-op observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func emitExchange(exchange Exchange) {
	observerMu.RLock()
	observer := activeObserver
	observerMu.RUnlock()
	observer.ObserveExchange(exchange)
}
