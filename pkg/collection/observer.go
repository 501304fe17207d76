package collection

import "time"

// Operation names reported to observers and carried in errors.
const (
	OpList   = "list"
	OpGet    = "get"
	OpDefine = "define"
)

// Observer receives query timings and skipped documents.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveQuery(folder, op string, elapsed time.Duration, err error)
	ObserveSkip(folder, storagePath string, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveQuery(string, string, time.Duration, error) {}
func (nopObserver) ObserveSkip(string, string, error)                 {}
