package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/redline/internal/applier"
	"github.com/jackzampolin/redline/internal/document"
	"github.com/jackzampolin/redline/internal/engine"
	"github.com/jackzampolin/redline/internal/epubdoc"
	"github.com/jackzampolin/redline/internal/markdown"
)

func testApplier(mock *engine.MockAnnotator) *applier.Applier {
	cfg := applier.DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return applier.New(engine.NewAnnotator(mock), cfg)
}

func TestRun_Markdown(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	src := "# Title\n\nThis is teh text.\n"
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	mock := &engine.MockAnnotator{
		MatchesFor: map[string][]document.Match{
			"This is teh text.": {
				{Offset: 8, Length: 3, Replacements: []string{"the"}, Rule: "MORFOLOGIK_RULE_EN_US"},
			},
		},
	}

	p := New(testApplier(mock), markdown.DefaultWriteOptions(), "")
	report, err := p.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Output != filepath.Join(dir, "doc_corrected.md") {
		t.Errorf("unexpected output path %s", report.Output)
	}
	out, err := os.ReadFile(report.Output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(out) != "# Title\n\nThis is the text.\n" {
		t.Errorf("unexpected output:\n%s", out)
	}

	if report.SpansTotal != 2 {
		t.Errorf("expected 2 spans, got %d", report.SpansTotal)
	}
	if report.SpansChanged != 1 {
		t.Errorf("expected 1 changed span, got %d", report.SpansChanged)
	}
	if report.Counts[document.CategoryTypo] != 1 {
		t.Errorf("expected 1 typo fix, got %d", report.Counts[document.CategoryTypo])
	}

	// The input file stays untouched.
	after, err := os.ReadFile(input)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != src {
		t.Error("input file was modified")
	}
}

func TestRun_OutputOverride(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(input, []byte("Hello.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	custom := filepath.Join(dir, "reviewed.md")
	p := New(testApplier(&engine.MockAnnotator{}), markdown.DefaultWriteOptions(), custom)
	report, err := p.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.Output != custom {
		t.Errorf("expected %s, got %s", custom, report.Output)
	}
	if _, err := os.Stat(custom); err != nil {
		t.Errorf("override path not written: %v", err)
	}
}

func TestRun_EngineFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	src := "One paragraph.\n\nTwo paragraph.\n"
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	mock := &engine.MockAnnotator{Err: errors.New("server down")}
	p := New(testApplier(mock), markdown.DefaultWriteOptions(), "")
	report, err := p.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("engine failure should not abort the run: %v", err)
	}

	if report.EngineFailures != 2 {
		t.Errorf("expected 2 engine failures, got %d", report.EngineFailures)
	}
	if report.SpansChanged != 0 {
		t.Errorf("expected no changes, got %d", report.SpansChanged)
	}

	out, err := os.ReadFile(report.Output)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if string(out) != src {
		t.Errorf("failed spans must pass through unchanged:\n%s", out)
	}
}

func TestRun_ParseErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(input, []byte{'h', 'i', 0xff, 0xfe}, 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(testApplier(&engine.MockAnnotator{}), markdown.DefaultWriteOptions(), "")
	_, err := p.Run(context.Background(), input)
	if !errors.Is(err, document.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}

	if _, err := os.Stat(document.CorrectedPath(input)); !os.IsNotExist(err) {
		t.Error("output file created despite parse failure")
	}
}

func TestRun_UnsupportedExtension(t *testing.T) {
	input := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(input, []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := New(testApplier(&engine.MockAnnotator{}), markdown.DefaultWriteOptions(), "")
	if _, err := p.Run(context.Background(), input); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

const pipelineContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const pipelineOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
  </spine>
</package>`

const pipelineCh1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p>It was teh best of times.</p>
</body></html>`

const pipelineNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np-1"><navLabel><text>One</text></navLabel><content src="ch1.xhtml"/></navPoint>
  </navMap>
</ncx>`

func writePipelineEpub(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		t.Fatal(err)
	}

	files := []struct{ name, data string }{
		{"META-INF/container.xml", pipelineContainerXML},
		{"OEBPS/content.opf", pipelineOPF},
		{"OEBPS/ch1.xhtml", pipelineCh1},
		{"OEBPS/toc.ncx", pipelineNCX},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(f.data)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "book.epub")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_EPUB(t *testing.T) {
	input := writePipelineEpub(t)

	mock := &engine.MockAnnotator{
		MatchesFor: map[string][]document.Match{
			"It was teh best of times.": {
				{Offset: 7, Length: 3, Replacements: []string{"the"}, Rule: "MORFOLOGIK_RULE_EN_US"},
			},
		},
	}

	p := New(testApplier(mock), markdown.DefaultWriteOptions(), "")
	report, err := p.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.Format != document.FormatEPUB {
		t.Errorf("expected epub format, got %s", report.Format)
	}
	if report.SpansChanged != 1 {
		t.Errorf("expected 1 changed span, got %d", report.SpansChanged)
	}

	// The corrected package reopens with the fixed text.
	out, err := epubdoc.Open(report.Output)
	if err != nil {
		t.Fatalf("corrected epub does not open: %v", err)
	}
	spans := out.ExtractSpans()
	if len(spans) != 1 || spans[0].Content != "It was the best of times." {
		t.Errorf("unexpected corrected spans: %+v", spans)
	}
}
