package reportpdf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSanitize_Accepts(t *testing.T) {
	for _, name := range []string{
		"page1.html",
		"Page_2.html",
		"summary-final.html",
		"page3.HTML",
		"  page4.html  ",
	} {
		for _, policy := range []Policy{Lenient, Strict} {
			got, err := Sanitize(name, policy)
			if err != nil {
				t.Errorf("Sanitize(%q, %v) error: %v", name, policy, err)
				continue
			}
			if got == DefaultPage && name != DefaultPage {
				t.Errorf("Sanitize(%q, %v) fell back to the default page", name, policy)
			}
		}
	}
}

func TestSanitize_Rejects(t *testing.T) {
	for _, name := range []string{
		"",
		"   ",
		"page1.htm",
		"page1.php",
		"../page1.html",
		"pages/page1.html",
		`pages\page1.html`,
		"page 1.html",
		"page1.html.bak",
		".html",
		"page%2F1.html",
		"page1.html/",
	} {
		got, err := Sanitize(name, Lenient)
		if err != nil || got != DefaultPage {
			t.Errorf("lenient Sanitize(%q) = %q, %v; want %q", name, got, err, DefaultPage)
		}

		_, err = Sanitize(name, Strict)
		if !errors.Is(err, ErrInvalidPageName) {
			t.Errorf("strict Sanitize(%q) error = %v, want ErrInvalidPageName", name, err)
		}
	}
}

func TestSanitize_CustomDefault(t *testing.T) {
	s := Sanitizer{Default: "cover.html"}
	if got, _ := s.Sanitize("nope"); got != "cover.html" {
		t.Errorf("Sanitize = %q, want cover.html", got)
	}
}

func TestSanitize_StrictChecksRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "page1.html"), []byte("<p>1</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "dir.html"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := Sanitizer{Policy: Strict, Root: PagesRoot(dir)}
	if _, err := s.Sanitize("page1.html"); err != nil {
		t.Errorf("existing page rejected: %v", err)
	}
	if _, err := s.Sanitize("page2.html"); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("missing page error = %v, want ErrPageNotFound", err)
	}
	if _, err := s.Sanitize("dir.html"); !errors.Is(err, ErrPageNotFound) {
		t.Errorf("directory error = %v, want ErrPageNotFound", err)
	}
}

func TestParsePageList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"page2.html,page2.html,page3.html", []string{"page2.html", "page3.html"}},
		{"", []string{"page1.html"}},
		{" , ,", []string{"page1.html"}},
		{"page3.html, page1.html", []string{"page3.html", "page1.html"}},
	}
	for _, tt := range tests {
		got, err := Sanitizer{Policy: Strict}.ParsePageList(tt.raw)
		if err != nil {
			t.Errorf("ParsePageList(%q) error: %v", tt.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParsePageList(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizePageList_StrictRejectsBatch(t *testing.T) {
	_, err := Sanitizer{Policy: Strict}.NormalizePageList([]string{"page1.html", "../etc/passwd"})
	if !errors.Is(err, ErrInvalidPageName) {
		t.Fatalf("error = %v, want ErrInvalidPageName", err)
	}
}

func TestNormalizePageList_LenientDefaultsEntries(t *testing.T) {
	got, err := Sanitizer{}.NormalizePageList([]string{"bad", "page2.html", "worse", "page2.html"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"page1.html", "page2.html"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizePageList_Nil(t *testing.T) {
	got, err := Sanitizer{Policy: Strict}.NormalizePageList(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{DefaultPage}) {
		t.Errorf("got %v, want [%s]", got, DefaultPage)
	}
}
