package reportpdf

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// Pipeline names used in logs and job records.
const (
	PipelineScreenshot = "screenshot"
	PipelineCapture    = "capture"
	PipelineRemote     = "remote"
)

// Progress receives human-readable status messages while an export runs.
type Progress interface {
	Update(msg string)
}

// ProgressFunc adapts a function to [Progress].
type ProgressFunc func(msg string)

// Update calls f(msg).
func (f ProgressFunc) Update(msg string) { f(msg) }

// NopProgress discards all messages.
var NopProgress Progress = ProgressFunc(func(string) {})

// ExportJob is one run of a pipeline over a page list.
type ExportJob struct {
	ID       string
	Pipeline string
	Pages    []string
	Started  time.Time

	progress Progress
	log      *zap.Logger
}

func newExportJob(pipeline string, pages []string, progress Progress, log *zap.Logger) *ExportJob {
	id := xid.New().String()
	return &ExportJob{
		ID:       id,
		Pipeline: pipeline,
		Pages:    pages,
		Started:  time.Now(),
		progress: progress,
		log: log.With(
			zap.String("job_id", id),
			zap.String("pipeline", pipeline),
		),
	}
}

// report forwards a status message to the progress sink.
func (j *ExportJob) report(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.progress.Update(msg)
	j.log.Debug("export progress", zap.String("message", msg))
}

// Elapsed returns the time since the job started.
func (j *ExportJob) Elapsed() time.Duration {
	return time.Since(j.Started)
}

// jobLock serializes exports that share one browser tab or stage.
type jobLock chan struct{}

func newJobLock() jobLock {
	return make(jobLock, 1)
}

func (l jobLock) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l jobLock) release() {
	<-l
}
