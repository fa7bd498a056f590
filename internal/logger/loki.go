package logger

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/enchung913/career-recommender/pkg/loki"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const lokiSourceField = "source"

// pusherErrors reports failed pushes through logrus; the hook skips these entries so they never loop back.
type pusherErrors struct{}

func (pusherErrors) Error(msg string, args ...any) {
	log.WithFields(log.Fields{lokiSourceField: "loki", "args": args}).Error(msg)
}

type lokiHook struct {
	pusher *loki.Pusher
	levels []log.Level
}

func newLokiHook(pusher *loki.Pusher, minLevel log.Level) *lokiHook {
	return &lokiHook{
		pusher: pusher,
		levels: lo.Filter(log.AllLevels, func(l log.Level, _ int) bool { return l <= minLevel }),
	}
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	if entry.Data[lokiSourceField] == "loki" {
		return nil
	}
	return h.pusher.Push(toLokiEntry(entry))
}

func (h *lokiHook) Levels() []log.Level {
	return h.levels
}

// toLokiEntry flattens the logrus fields (error_type, run_id, matrix, ...) into string fields.
func toLokiEntry(entry *log.Entry) loki.LogEntry {
	var caller string
	if entry.Caller != nil {
		caller = filepath.Base(entry.Caller.Function) + ":" + strconv.Itoa(entry.Caller.Line)
	}

	return loki.LogEntry{
		Level:   entry.Level.String(),
		Message: entry.Message,
		Caller:  caller,
		Fields:  lo.MapValues(entry.Data, func(v any, _ string) string { return stringify(v) }),
	}
}

func addLokiHook(ctx context.Context, cfg loki.Config, minLevel log.Level) error {
	pusher, err := loki.New(ctx, cfg, pusherErrors{})
	if err != nil {
		return err
	}
	lokiPusher = pusher
	log.AddHook(newLokiHook(pusher, minLevel))
	log.Infof("shipping logs to %s", cfg.Url)
	return nil
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case error:
		return value.Error()
	default:
		return fmt.Sprint(value)
	}
}
