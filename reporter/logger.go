package reporter

import (
	"errors"

	"github.com/YuCat-OVO/DApi/common"
	sreCommon "github.com/devopsext/sre/common"
)

type LoggerOptions struct {
}

// Logger emits one summary line per bucket, so a scheduled run leaves a
// trace in the logs even when no other reporter is configured.
type Logger struct {
	options LoggerOptions
	logger  sreCommon.Logger
}

const ReporterLoggerName = "Logger"

func (l *Logger) Name() string {
	return ReporterLoggerName
}

func (l *Logger) Report(r *common.Report) error {

	if r == nil {
		return errors.New("Logger reporter cannot process empty report")
	}

	for _, name := range common.ReportBuckets {
		l.logger.Info("Logger reporter %s: %d", name, r.Count(name))
	}

	for _, e := range r.Entries(common.BucketAvailableHttps) {
		l.logger.Info("Logger reporter available %s %.2fs", e.URL, e.Latency)
	}
	return nil
}

func NewLogger(options LoggerOptions, observability *common.Observability) *Logger {

	return &Logger{
		options: options,
		logger:  observability.Logs(),
	}
}
