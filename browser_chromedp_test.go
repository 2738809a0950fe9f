package reportpdf

import (
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func lifecycle(frame cdp.FrameID, loader cdp.LoaderID, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: frame, LoaderID: loader, Name: name}
}

func TestLifecycleWaiterIgnoresSubframes(t *testing.T) {
	w := newLifecycleWaiter()
	w.expect("main", "doc2")

	w.observe(lifecycle("iframe", "ad1", "init"))
	w.observe(lifecycle("iframe", "ad1", "networkIdle"))
	if isClosed(w.idle) {
		t.Fatal("iframe networkIdle ended the wait")
	}
	// The previous document of the main frame.
	w.observe(lifecycle("main", "doc1", "networkIdle"))
	if isClosed(w.idle) {
		t.Fatal("stale document networkIdle ended the wait")
	}
	w.observe(lifecycle("main", "doc2", "load"))
	if isClosed(w.idle) {
		t.Fatal("load ended the wait")
	}

	w.observe(lifecycle("main", "doc2", "init"))
	w.observe(lifecycle("main", "doc2", "networkIdle"))
	if !isClosed(w.idle) {
		t.Fatal("main frame networkIdle did not end the wait")
	}
	// Repeated events must not close twice.
	w.observe(lifecycle("main", "doc2", "networkIdle"))
}

func TestLifecycleWaiterEventBeforeNavigateReturns(t *testing.T) {
	w := newLifecycleWaiter()
	w.observe(lifecycle("main", "doc1", "networkIdle"))
	if isClosed(w.idle) {
		t.Fatal("closed before the navigated frame was known")
	}
	w.expect("main", "doc1")
	if !isClosed(w.idle) {
		t.Fatal("buffered networkIdle was not applied")
	}
}
