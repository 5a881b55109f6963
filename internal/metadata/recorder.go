package metadata

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohmanhakim/image-cache/internal/metrics"
)

/*
Recorder captures structured cache events.
It must not:
- perform I/O decisions
- affect control flow

Ordering guarantees:
- Events are recorded synchronously in the order they are received.
- Ordering is provided for debuggability, not causality.

Recorder writes each event to the structured logger and bumps the
matching Prometheus counter. Either backend may be nil, in which case
that side is skipped; a zero-value Recorder is a valid no-op sink.
*/
type Recorder struct {
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewRecorder(logger *logrus.Logger, m *metrics.Metrics) Recorder {
	return Recorder{
		logger:  logger,
		metrics: m,
	}
}

func (r *Recorder) RecordFetch(
	fetchUrl string,
	httpStatus int,
	duration time.Duration,
	sizeByte uint64,
) {
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"event":       "fetch",
			"url":         fetchUrl,
			"http_status": httpStatus,
			"duration_ms": duration.Milliseconds(),
			"size_byte":   sizeByte,
		}).Info("fetch completed")
	}
}

func (r *Recorder) RecordCacheHit(fetchUrl string, path string) {
	if r.metrics != nil {
		r.metrics.CacheHits.Inc()
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"event": "cache_hit",
			"url":   fetchUrl,
			"path":  path,
		}).Debug("served from cache")
	}
}

func (r *Recorder) RecordCacheMiss(fetchUrl string) {
	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"event": "cache_miss",
			"url":   fetchUrl,
		}).Debug("cache miss")
	}
}

func (r *Recorder) RecordEviction(victimUrl string, path string) {
	if r.metrics != nil {
		r.metrics.Evictions.Inc()
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"event":      "eviction",
			"victim_url": victimUrl,
			"path":       path,
		}).Info("evicted least-recently-used entry")
	}
}

func (r *Recorder) RecordArtifact(path string, sizeByte uint64, attrs []Attribute) {
	if r.logger != nil {
		fields := logrus.Fields{
			"event":     "artifact",
			"path":      path,
			"size_byte": sizeByte,
		}
		for _, attr := range attrs {
			fields[string(attr.Key)] = attr.Value
		}
		r.logger.WithFields(fields).Info("cached artifact written")
	}
}

func (r *Recorder) RecordEntryCount(count int) {
	if r.metrics != nil {
		r.metrics.TrackedEntries.Set(float64(count))
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	errorString string,
	attrs []Attribute,
) {
	if r.metrics != nil {
		switch cause {
		case CauseNetworkFailure, CauseHTTPRejection:
			r.metrics.FetchErrors.Inc()
		case CauseStorageFailure:
			r.metrics.StoreErrors.Inc()
		}
	}
	if r.logger != nil {
		fields := logrus.Fields{
			"event":       "error",
			"observed_at": observedAt.Format(time.RFC3339Nano),
			"package":     packageName,
			"action":      action,
			"cause":       cause,
		}
		for _, attr := range attrs {
			fields[string(attr.Key)] = attr.Value
		}
		r.logger.WithFields(fields).Error(errorString)
	}
}
