package cookie

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestParseNetscapeFileJoinsNameValuePairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	content := "# Netscape HTTP Cookie File\n" +
		"# This is a generated file, edit at your own risk.\n" +
		"\n" +
		".example.com\tTRUE\t/\tTRUE\t0\tsession\tabc123\n" +
		".example.com\tTRUE\t/\tFALSE\t0\tuid\tu-9\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseNetscapeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "session=abc123; uid=u-9"
	if string(got) != want {
		t.Errorf("ParseNetscapeFile = %q, want %q", got, want)
	}
}

func TestParseNetscapeFileSkipsMalformedAndCommentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cookies.txt")
	content := "# comment\n" +
		"\n" +
		"not-enough-fields\tTRUE\n" +
		".example.com\tTRUE\t/\tTRUE\t0\tonly_valid\tv1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ParseNetscapeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "only_valid=v1" {
		t.Errorf("ParseNetscapeFile = %q, want %q", got, "only_valid=v1")
	}
}

func TestParseNetscapeFileReturnsErrorForMissingFile(t *testing.T) {
	_, err := ParseNetscapeFile(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestFormatCookiesJoinsWithSemicolon(t *testing.T) {
	cookies := []*proto.NetworkCookie{
		{Name: "a", Value: "1"},
		{Name: "b", Value: "2"},
	}
	got := formatCookies(cookies)
	if string(got) != "a=1; b=2" {
		t.Errorf("formatCookies = %q, want %q", got, "a=1; b=2")
	}
}

func TestFormatCookiesEmptyList(t *testing.T) {
	got := formatCookies(nil)
	if string(got) != "" {
		t.Errorf("formatCookies(nil) = %q, want empty string", got)
	}
}
