package reportpdf

import (
	"errors"
	"strings"
	"testing"
)

type recordingProcess struct {
	calls []string
}

func (p *recordingProcess) Kill()    { p.calls = append(p.calls, "kill") }
func (p *recordingProcess) Cleanup() { p.calls = append(p.calls, "cleanup") }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestShutdownStageKillsBeforeCleanup(t *testing.T) {
	proc := &recordingProcess{}
	var closed []string
	page := closerFunc(func() error { closed = append(closed, "page"); return nil })
	browser := closerFunc(func() error {
		closed = append(closed, "browser")
		return errors.New("browser close timed out")
	})

	err := shutdownStage(proc, page, browser)
	if err == nil || !strings.Contains(err.Error(), "browser close timed out") {
		t.Errorf("err = %v, want the browser close error", err)
	}
	if got := strings.Join(closed, ","); got != "page,browser" {
		t.Errorf("closed = %s, want page,browser", got)
	}
	if got := strings.Join(proc.calls, ","); got != "kill,cleanup" {
		t.Errorf("process calls = %s, want kill,cleanup", got)
	}
}

func TestShutdownStageWithoutClosers(t *testing.T) {
	proc := &recordingProcess{}
	if err := shutdownStage(proc); err != nil {
		t.Errorf("err = %v", err)
	}
	if got := strings.Join(proc.calls, ","); got != "kill,cleanup" {
		t.Errorf("process calls = %s, want kill,cleanup", got)
	}
}
