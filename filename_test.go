package reportpdf

import "testing"

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		pages []string
		tmpl  string
		want  string
	}{
		{[]string{"page3.html"}, "", "page3.pdf"},
		{[]string{"page1.html", "page2.html"}, "", "report-page1-page2.pdf"},
		{[]string{"page1.html", "page2.html"}, "hurwitz-report-{pages}.pdf", "hurwitz-report-page1-page2.pdf"},
		{[]string{"Summary.HTML"}, "", "Summary.pdf"},
		{nil, "", "report.pdf"},
	}
	for _, tt := range tests {
		if got := DownloadFilename(tt.pages, tt.tmpl); got != tt.want {
			t.Errorf("DownloadFilename(%v, %q) = %q, want %q", tt.pages, tt.tmpl, got, tt.want)
		}
	}
}

func TestFilenameFromTemplate(t *testing.T) {
	got := FilenameFromTemplate("{page}-and-{pages}.pdf", []string{"page4.html", "page7.html"})
	if want := "page4-and-page4-page7.pdf"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFilenameFromDisposition(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="page2.pdf"`, "page2.pdf"},
		{`attachment; filename=report-page1-page2.pdf`, "report-page1-page2.pdf"},
		{`attachment; filename="a.pdf"; size=10`, "a.pdf"},
		{`inline`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := FilenameFromDisposition(tt.header); got != tt.want {
			t.Errorf("FilenameFromDisposition(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestContentDispositionRoundTrip(t *testing.T) {
	h := ContentDisposition("report-page1-page2.pdf")
	if got := FilenameFromDisposition(h); got != "report-page1-page2.pdf" {
		t.Errorf("round trip = %q", got)
	}
}
