package click

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultRecordTimeout bounds one asynchronous record, geolocation
// lookup included.
const DefaultRecordTimeout = 5 * time.Second

// Recorder turns request metadata into click events and appends them
// asynchronously. Recording runs detached from the redirect's request
// context: a slow geolocation lookup or store write can never delay or
// fail the redirect response.
type Recorder struct {
	store   Store
	geo     Locator
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// RecorderConfig holds configuration for the Recorder.
type RecorderConfig struct {
	Geo     Locator       // nil disables geolocation enrichment
	Timeout time.Duration // per-record bound (default: 5s)
}

// NewRecorder creates a Recorder.
func NewRecorder(store Store, logger *slog.Logger, config *RecorderConfig) *Recorder {
	if config == nil {
		config = &RecorderConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultRecordTimeout
	}

	return &Recorder{
		store:   store,
		geo:     config.Geo,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Record classifies the request metadata and appends one event in the
// background. The timestamp is assigned here, before the goroutine is
// scheduled, so event order follows recording order.
func (r *Recorder) Record(alias, clientAddress, userAgent string) {
	event := Event{
		Alias:         alias,
		ClientAddress: clientAddress,
		UserAgentRaw:  userAgent,
		OSType:        DetectOS(userAgent),
		DeviceType:    DetectDevice(userAgent),
		Timestamp:     r.now().UTC(),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if r.geo != nil {
			if loc, err := r.geo.Locate(ctx, event.ClientAddress); err == nil {
				event.Country = loc.Country
				event.City = loc.City
			}
			// Lookup failures are swallowed; the fields stay absent.
		}

		if err := r.store.Append(ctx, event); err != nil {
			r.logger.Warn("failed to append click event",
				"alias", event.Alias,
				"error", err.Error(),
			)
		}
	}()
}

// Drain blocks until all in-flight records have completed. Used at
// shutdown and in tests.
func (r *Recorder) Drain() {
	r.wg.Wait()
}
