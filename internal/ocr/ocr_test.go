package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mu    sync.Mutex
	calls [][]string
	fn    func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{name}, args...))
	s.mu.Unlock()
	return s.fn(name, args)
}

func (s *stubRunner) called(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

const recipeOCR = "Ingredients\n2 cups flour\n1 tsp salt\n\nInstructions\nMix 2 cups flour with 1 tsp salt and bake."

func TestNormalize(t *testing.T) {
	in := "1½ cups  flour\r\n¾ tsp\tsalt\r\n\r\n\r\n\r\nMix well   \n"
	assert.Equal(t, "1 1/2 cups flour\n3/4 tsp salt\n\nMix well", Normalize(in))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, Normalize(in), Normalize(Normalize(in)))
}

func TestExtractImage(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "tesseract", name)
		assert.Equal(t, "stdout", args[1])
		assert.Equal(t, []string{"-l", "fra"}, args[2:4])
		assert.True(t, strings.HasSuffix(args[0], ".png"))
		return []byte(recipeOCR), nil, nil
	}}
	e := NewExtractor(Config{}, nil).WithRunner(r)

	var progress []int
	res, err := e.ExtractImage(context.Background(), pngHeader, "fra", func(p int) { progress = append(progress, p) })
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "2 cups flour")
	assert.Greater(t, res.Confidence, float32(0.6))
	assert.Equal(t, []int{0, 10, 30, 100}, progress)
}

func TestExtractImageTesseractFailure(t *testing.T) {
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("read error"), errors.New("exit status 1")
	}}
	e := NewExtractor(Config{}, nil).WithRunner(r)
	_, err := e.ExtractImage(context.Background(), pngHeader, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract")
}

func TestExtractImageHEICUsesCache(t *testing.T) {
	cache := t.TempDir()
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic\x00\x00\x00\x00mif1heic")...)
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "magick":
			return nil, nil, os.WriteFile(args[1], pngHeader, 0o644)
		case "tesseract":
			assert.True(t, strings.HasPrefix(args[0], cache))
			return []byte(recipeOCR), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}}
	e := NewExtractor(Config{HeicConverter: "magick", ArtifactCacheDir: cache}, nil).WithRunner(r)

	_, err := e.ExtractImage(context.Background(), heic, "", nil)
	require.NoError(t, err)
	_, err = e.ExtractImage(context.Background(), heic, "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, r.called("magick"))
	assert.Equal(t, 2, r.called("tesseract"))
	files, _ := filepath.Glob(filepath.Join(cache, "*.png"))
	assert.Len(t, files, 1)
}

func TestExtractImageHEICWithoutConverter(t *testing.T) {
	heic := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	r := &stubRunner{fn: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	e := NewExtractor(Config{}, nil).WithRunner(r)
	_, err := e.ExtractImage(context.Background(), heic, "", nil)
	require.Error(t, err)
	assert.Equal(t, 0, r.called("tesseract"))
}

func TestExtractPDFTextLayer(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		require.Equal(t, "pdftotext", name)
		return []byte(recipeOCR + "\f" + "Serves 4\f"), nil, nil
	}}
	e := NewExtractor(Config{}, nil).WithRunner(r)
	res, err := e.ExtractPDF(context.Background(), []byte("%PDF-1.4"), "", 50)
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "Serves 4")
	assert.Equal(t, 0, r.called("pdftoppm"))
}

func TestExtractPDFFallsBackToOCR(t *testing.T) {
	r := &stubRunner{fn: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, p := range []string{"-1.png", "-2.png"} {
				if err := os.WriteFile(prefix+p, pngHeader, 0o644); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("page of " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}}
	e := NewExtractor(Config{DPI: 150}, nil).WithRunner(r)
	res, err := e.ExtractPDF(context.Background(), []byte("%PDF-1.4"), "eng", 50)
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "page of page-1.png\n\npage of page-2.png", res.Text)
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t10\t20\t10\t90\tflour\n" +
		"5\t1\t1\t1\t1\t2\t40\t10\t20\t10\t70\tsugar\n"
	assert.InDelta(t, 0.8, meanTSVConfidence(tsv), 0.0001)
	assert.Equal(t, float32(0), meanTSVConfidence(""))
}

func TestIsHEICAndImageExt(t *testing.T) {
	assert.True(t, isHEIC(append([]byte{0, 0, 0, 24}, []byte("ftypmif1")...)))
	assert.False(t, isHEIC(pngHeader))
	assert.Equal(t, ".png", imageExt(pngHeader))
	assert.Equal(t, ".jpg", imageExt([]byte("\xff\xd8\xff\xe0\x00\x10JFIF")))
	assert.Equal(t, ".tif", imageExt([]byte("II*\x00rest")))
}

func TestHeuristicConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, heuristicConfidence("zzz"), 0.001)
	assert.Greater(t, heuristicConfidence(recipeOCR), float32(0.7))
}
