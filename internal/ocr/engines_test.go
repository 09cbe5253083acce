package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records the invocation and checks the input file exists while
// the command "runs".
type fakeRunner struct {
	name   string
	args   []string
	input  []byte
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	for _, a := range args {
		if b, err := os.ReadFile(a); err == nil {
			f.input = b
			break
		}
	}
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestPdftotextEngine(t *testing.T) {
	r := &fakeRunner{stdout: "page one\fpage two\n\f"}
	eng := &PdftotextEngine{Bin: "pdftotext", MaxPages: 5, Runner: r}

	pages, err := eng.ExtractPages(context.Background(), []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two\n"}, pages)

	assert.Equal(t, "pdftotext", r.name)
	assert.Equal(t, []byte("%PDF-1.7"), r.input)
	assert.Contains(t, r.args, "-l")
	assert.Equal(t, "-", r.args[len(r.args)-1])

	// temp input is cleaned up
	_, err = os.Stat(r.args[len(r.args)-2])
	assert.True(t, os.IsNotExist(err))
}

func TestPdftotextEngine_Error(t *testing.T) {
	r := &fakeRunner{stderr: "Syntax Error: Couldn't find trailer dictionary", err: errors.New("exit status 1")}
	eng := &PdftotextEngine{Bin: "pdftotext", Runner: r}

	_, err := eng.ExtractPages(context.Background(), []byte("junk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailer dictionary")
}

func TestTesseractEngine_Args(t *testing.T) {
	r := &fakeRunner{stdout: "recognized\n"}
	eng := &TesseractEngine{Bin: "tesseract", PSM: 6, OEM: 1, TessdataDir: "/td", Runner: r}

	text, err := eng.Recognize(context.Background(), []byte("png"), []string{"eng", "fra"})
	require.NoError(t, err)
	assert.Equal(t, "recognized\n", text)
	assert.Equal(t, []string{"stdout", "-l", "eng+fra", "--psm", "6", "--oem", "1", "--tessdata-dir", "/td"}, r.args[1:])
	assert.Equal(t, []byte("png"), r.input)

	_, err = eng.Recognize(context.Background(), []byte("png"), nil)
	require.NoError(t, err)
	assert.Equal(t, "eng", r.args[3])
}

type stubPDF struct {
	pages []string
	err   error
}

func (s stubPDF) ExtractPages(context.Context, []byte) ([]string, error) { return s.pages, s.err }

type stubOCR struct {
	langs []string
	text  string
	err   error
}

func (s *stubOCR) Recognize(_ context.Context, _ []byte, langs []string) (string, error) {
	s.langs = langs
	return s.text, s.err
}

func TestExtractor_Handle(t *testing.T) {
	rec := &stubOCR{text: "scan text"}
	ex := NewExtractor(stubPDF{pages: []string{"a", "b"}}, rec, discardLogger())
	ctx := context.Background()

	resp := ex.Handle(ctx, workerpool.Request{ID: "1", Kind: constants.PDF, Name: "a.pdf"})
	assert.Empty(t, resp.Error)
	assert.Equal(t, []string{"a", "b"}, resp.Pages)

	resp = ex.Handle(ctx, workerpool.Request{ID: "2", Kind: constants.IMAGE, Languages: []string{"deu"}})
	assert.Empty(t, resp.Error)
	assert.Equal(t, "scan text", resp.Text)
	assert.Equal(t, []string{"deu"}, rec.langs)

	resp = ex.Handle(ctx, workerpool.Request{ID: "3", Kind: "DOCX"})
	assert.Contains(t, resp.Error, "unsupported request kind")
}

func TestExtractor_HandleFailure(t *testing.T) {
	ex := NewExtractor(stubPDF{err: errors.New("no trailer")}, &stubOCR{err: errors.New("bad image")}, discardLogger())

	resp := ex.Handle(context.Background(), workerpool.Request{Kind: constants.PDF})
	assert.Equal(t, "no trailer", resp.Error)
	assert.Nil(t, resp.Pages)

	resp = ex.Handle(context.Background(), workerpool.Request{Kind: constants.IMAGE})
	assert.Equal(t, "bad image", resp.Error)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(common.DefaultConfig().OCR)
	assert.Equal(t, "fitz", cfg.PDFEngine)
	assert.Equal(t, "gosseract", cfg.OCREngine)
	assert.Equal(t, "tesseract", cfg.Tesseract)
}
