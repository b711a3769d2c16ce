package extract

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/ocr"
)

const longRecipe = "Beef Chili\nBrown 2 lb ground beef with 1 chopped onion in 1 tbsp oil, then simmer 1 hour."

type fakePDF struct {
	out   Output
	err   error
	calls int
}

func (f *fakePDF) ExtractPDFText(context.Context, []byte) (Output, error) {
	f.calls++
	return f.out, f.err
}

type fakeImage struct {
	text     string
	gotLang  string
	progress []int
}

func (f *fakeImage) ExtractImageText(_ context.Context, _ []byte, lang string, progress ProgressFunc) (Output, error) {
	f.gotLang = lang
	for _, p := range []int{0, 50, 100} {
		if progress != nil {
			progress(p)
		}
	}
	return Output{Text: f.text, Pages: 1, Method: "image-ocr", Confidence: 0.8}, nil
}

func TestRegistrySelect(t *testing.T) {
	reg := DefaultRegistry(Providers{Image: &fakeImage{}})
	assert.Equal(t, []constants.Format{constants.PDF, constants.WORD, constants.IMAGE, constants.PLAINTEXT}, reg.Names())

	tests := []struct {
		name        string
		contentType string
		filename    string
		want        constants.Format
	}{
		{"pdf with params", "application/pdf; charset=binary", "x", constants.PDF},
		{"content type wins over extension", "text/plain", "scan.pdf", constants.PLAINTEXT},
		{"octet stream falls back to extension", "application/octet-stream", "IMG_0001.JPG", constants.IMAGE},
		{"missing content type", "", "Stew.DOCX", constants.WORD},
		{"image family", "image/heic", "upload", constants.IMAGE},
		{"markdown", "text/markdown", "", constants.PLAINTEXT},
		{"legacy word", "application/msword", "", constants.WORD},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := reg.Select(tt.contentType, tt.filename)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
		})
	}
}

func TestRegistrySelectUnsupported(t *testing.T) {
	reg := DefaultRegistry(Providers{})
	_, err := reg.Select("application/zip", "recipes.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	var ue *UnsupportedFormatError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "application/zip", ue.ContentType)
	assert.Contains(t, err.Error(), "application/zip")
}

func TestRegistryRegisterCustom(t *testing.T) {
	reg := DefaultRegistry(Providers{})
	reg.Register(Capability{
		Name:             "rich-text",
		MatchContentType: ContentTypes("application/rtf"),
		MatchExtension:   Extensions("rtf"),
		Extract: func(_ context.Context, data []byte, _ Options) (Output, error) {
			return Output{Text: strings.ToUpper(string(data)), Method: "rtf"}, nil
		},
	})
	d := NewDispatcher(reg, nil)
	got, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("pancakes for two"), Filename: "p.rtf"}, Options{MinLength: 10})
	require.NoError(t, err)
	assert.Equal(t, "PANCAKES FOR TWO", got.Text)
	assert.Equal(t, "rich-text", got.Format)
}

func TestDispatcherPlainText(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(Providers{}), nil)
	doc := entity.RecipeDocument{Content: []byte("\xef\xbb\xbf  " + longRecipe + "\r\n"), ContentType: "text/plain", Filename: "chili.txt"}

	got, err := d.Extract(context.Background(), doc, Options{MinLength: constants.MinLengthPipeline})
	require.NoError(t, err)
	assert.Equal(t, longRecipe, got.Text)
	assert.Equal(t, len([]rune(longRecipe)), got.Length)
	assert.Equal(t, "chili.txt", got.Filename)
	assert.Equal(t, "plain-text", got.Method)
}

func TestDispatcherEmptyExtraction(t *testing.T) {
	img := &fakeImage{text: "  Bake 1h "}
	d := NewDispatcher(DefaultRegistry(Providers{Image: img}), nil)
	doc := entity.RecipeDocument{Content: []byte{1}, ContentType: "image/png", Filename: "card.png"}

	_, err := d.Extract(context.Background(), doc, Options{MinLength: constants.MinLengthPipeline})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrEmptyExtraction)
	var ee *EmptyExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 7, ee.Length)
	assert.Equal(t, 50, ee.Min)

	_, err = d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("short"), Filename: "a.txt"}, Options{MinLength: constants.MinLengthExtractOnly})
	assert.ErrorIs(t, err, common.ErrEmptyExtraction)
}

func TestDispatcherImageProgressAndLanguage(t *testing.T) {
	img := &fakeImage{text: longRecipe}
	d := NewDispatcher(DefaultRegistry(Providers{Image: img}), nil)
	var seen []int
	got, err := d.Extract(context.Background(),
		entity.RecipeDocument{Content: []byte{1}, ContentType: "image/jpeg", Filename: "card.jpg"},
		Options{MinLength: 10, Progress: func(p int) { seen = append(seen, p) }},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 50, 100}, seen)
	assert.Equal(t, "eng", img.gotLang)
	assert.Equal(t, float32(0.8), got.Confidence)
	assert.Equal(t, "image", got.Format)
}

func TestDispatcherProviderFailure(t *testing.T) {
	boom := errors.New("corrupt xref table")
	d := NewDispatcher(DefaultRegistry(Providers{PDF: &fakePDF{err: boom}}), nil)
	_, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("%PDF"), Filename: "x.pdf"}, Options{MinLength: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, common.CodeExtractionFailed, common.CodeOf(err))
}

func TestDispatcherNoOCREngine(t *testing.T) {
	d := NewDispatcher(DefaultRegistry(Providers{}), nil)
	_, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte{1}, Filename: "x.png"}, Options{MinLength: 10})
	assert.ErrorIs(t, err, ErrNoOCREngine)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestPDFChainFallsBackToOCR(t *testing.T) {
	text := &fakePDF{out: Output{Text: "  ", Pages: 2, Method: "pdf-text"}}
	scanned := &fakePDF{out: Output{Text: longRecipe, Pages: 2, Method: "pdf-ocr", Confidence: 0.7}}
	d := NewDispatcher(DefaultRegistry(Providers{PDF: text, ScannedPDF: scanned}), nil)

	got, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("%PDF"), ContentType: "application/pdf", Filename: "scan.pdf"}, Options{MinLength: 50})
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", got.Method)
	assert.Equal(t, 1, text.calls)
	assert.Equal(t, 1, scanned.calls)
}

func TestPDFChainKeepsTextLayer(t *testing.T) {
	text := &fakePDF{out: Output{Text: longRecipe, Pages: 1, Method: "pdf-text"}}
	scanned := &fakePDF{err: errors.New("should not run")}
	d := NewDispatcher(DefaultRegistry(Providers{PDF: text, ScannedPDF: scanned}), nil)

	got, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("%PDF"), Filename: "typed.pdf"}, Options{MinLength: 50})
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", got.Method)
	assert.Equal(t, 0, scanned.calls)
}

func TestPDFChainShortTextAndOCRFailureIsEmpty(t *testing.T) {
	text := &fakePDF{out: Output{Text: "Page 1", Method: "pdf-text"}}
	scanned := &fakePDF{err: errors.New("tesseract missing")}
	d := NewDispatcher(DefaultRegistry(Providers{PDF: text, ScannedPDF: scanned}), nil)

	_, err := d.Extract(context.Background(), entity.RecipeDocument{Content: []byte("%PDF"), Filename: "scan.pdf"}, Options{MinLength: 50})
	assert.ErrorIs(t, err, common.ErrEmptyExtraction)
}

type cannedRunner struct {
	out []byte
	err error
}

func (r cannedRunner) Run(context.Context, string, *slog.Logger, ...string) ([]byte, []byte, error) {
	return r.out, nil, r.err
}

func TestOCRAdapterLogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	engine := ocr.NewExtractor(ocr.Config{}, logger).WithRunner(cannedRunner{out: []byte(longRecipe)})
	a := NewOCRAdapter(engine, "eng", 10, logger)
	out, err := a.ExtractPDFText(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", out.Method)
	assert.Contains(t, buf.String(), "msg=extract.ocr.pdf.ok")
	assert.Contains(t, buf.String(), "method=pdf-text")

	buf.Reset()
	engine = ocr.NewExtractor(ocr.Config{}, logger).WithRunner(cannedRunner{err: errors.New("exit status 1")})
	a = NewOCRAdapter(engine, "eng", 10, logger)
	_, err = a.ExtractPDFText(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "msg=extract.ocr.pdf.failed")
}
