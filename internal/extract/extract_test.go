package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := buildDocx(t, `<w:p><w:r><w:t>Unit 1 Sorting</w:t></w:r></w:p><w:p><w:r><w:t>Unit 2 Graphs</w:t></w:r></w:p>`)

	text, err := ExtractTextFromBytes(context.Background(), data, "application/zip", "notes.docx")
	if err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
	if !strings.Contains(text, "Unit 1 Sorting") || !strings.Contains(text, "Unit 2 Graphs") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if !strings.Contains(err.Error(), "application/zip") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromBytes_PlainText(t *testing.T) {
	text, err := ExtractTextFromBytes(context.Background(), []byte("binary trees"), "text/plain; charset=utf-8", "n.txt")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if text != "binary trees" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("  a\n\n b\tc  ", 0); got != "a b c" {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if got := Excerpt("héllo world", 5); got != "héllo" {
		t.Fatalf("unexpected truncated excerpt %q", got)
	}
}
