package logger

import (
	"github.com/enchung913/career-recommender/internal/metrics"
	log "github.com/sirupsen/logrus"
)

const (
	severityError    = "error"
	severityDegraded = "degraded"
)

// prometheusHook counts error entries by error type. Warnings count as degraded only when they carry
// an error type, which is how ranking and ingestion report a store read they had to skip.
type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, tagged := entry.Data[ErrorTypeField].(string)

	severity := severityError
	if entry.Level == log.WarnLevel {
		if !tagged {
			return nil
		}
		severity = severityDegraded
	}
	if !tagged {
		errorType = "unknown"
	}

	metrics.ErrorsCounter.WithLabelValues(errorType, severity).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel}
}

func addPrometheusHook() {
	log.AddHook(&prometheusHook{})
}
