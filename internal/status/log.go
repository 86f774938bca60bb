package status

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Log writes statuses to a zerolog logger.
type Log struct {
	Logger zerolog.Logger
	Task   string

	total atomic.Int64
	count atomic.Int64
}

func (l *Log) Begin(total int) {
	l.total.Store(int64(total))
	l.Logger.Debug().Str("task", l.Task).Int("total", total).Msg("starting")
}

func (l *Log) Advance(n int) {
	done := l.count.Add(int64(n))
	l.Logger.Trace().Str("task", l.Task).Int64("done", done).Int64("total", l.total.Load()).Send()
}

func (l *Log) Status(msg string) {
	l.Logger.Info().Str("task", l.Task).Msg(msg)
}
