package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/mkandasamy/deedflow/internal/model"
)

const (
	// DefaultLanguage is the tesseract language hint. Deedflow's source
	// documents are Tamil land records.
	DefaultLanguage = "tam"

	// DefaultDPI is the render resolution for PDF pages.
	DefaultDPI = 300
)

// TesseractConfig holds configuration for the tesseract extractor.
type TesseractConfig struct {
	Language string // tesseract language code (default "tam")
	DPI      int    // PDF render resolution (default 300)
}

// Tesseract implements Extractor using pdftoppm (poppler-utils) for PDF
// rendering and the tesseract engine for recognition.
type Tesseract struct {
	language      string
	dpi           int
	clientFactory func() *gosseract.Client
}

var _ Extractor = (*Tesseract)(nil)

// NewTesseract creates a tesseract-backed extractor.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	return &Tesseract{
		language:      cfg.Language,
		dpi:           cfg.DPI,
		clientFactory: gosseract.NewClient,
	}
}

// Extract OCRs the file page by page. PDFs are rendered to PNG first;
// images are recognized directly as a single page.
func (t *Tesseract) Extract(ctx context.Context, path string, fileType model.FileType) ([]PageText, error) {
	switch fileType {
	case model.FileTypePDF:
		return t.extractPDF(ctx, path)
	case model.FileTypeImage:
		return t.extractImage(ctx, path)
	default:
		return nil, &model.ExtractionError{Reason: fmt.Sprintf("unknown file type %q", fileType)}
	}
}

func (t *Tesseract) extractPDF(ctx context.Context, path string) ([]PageText, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ExtractionError{Reason: "cannot open PDF", Err: err}
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return nil, &model.ExtractionError{Reason: "cannot read PDF page count", Err: err}
	}
	if pageCount == 0 {
		return nil, &model.ExtractionError{Reason: "PDF has no pages"}
	}

	tmpDir, err := os.MkdirTemp("", "deedflow-ocr-*")
	if err != nil {
		return nil, &model.ExtractionError{Reason: "cannot create temp dir", Err: err}
	}
	defer os.RemoveAll(tmpDir)

	// One client for the whole document amortizes tesseract init cost.
	client := t.clientFactory()
	defer client.Close()
	if err := t.configureClient(client); err != nil {
		return nil, &model.ExtractionError{Reason: "tesseract init failed", Err: err}
	}

	results := make([]PageText, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		select {
		case <-ctx.Done():
			return nil, &model.ExtractionError{Reason: "extraction cancelled", Err: ctx.Err()}
		default:
		}

		imgPath, err := t.renderPage(ctx, path, tmpDir, page)
		if err != nil {
			return nil, &model.ExtractionError{Reason: fmt.Sprintf("render page %d", page), Err: err}
		}

		text, err := t.recognize(client, imgPath)
		if err != nil {
			return nil, &model.ExtractionError{Reason: fmt.Sprintf("OCR page %d", page), Err: err}
		}

		results = append(results, PageText{PageNumber: page, Text: text})
	}

	return results, nil
}

func (t *Tesseract) extractImage(ctx context.Context, path string) ([]PageText, error) {
	select {
	case <-ctx.Done():
		return nil, &model.ExtractionError{Reason: "extraction cancelled", Err: ctx.Err()}
	default:
	}

	client := t.clientFactory()
	defer client.Close()
	if err := t.configureClient(client); err != nil {
		return nil, &model.ExtractionError{Reason: "tesseract init failed", Err: err}
	}

	text, err := t.recognize(client, path)
	if err != nil {
		return nil, &model.ExtractionError{Reason: "OCR image", Err: err}
	}

	return []PageText{{PageNumber: 1, Text: text}}, nil
}

// configureClient applies the language hint and DPI to a tesseract client.
func (t *Tesseract) configureClient(c *gosseract.Client) error {
	if err := c.SetLanguage(t.language); err != nil {
		return fmt.Errorf("set language %q: %w", t.language, err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(t.dpi)); err != nil {
		return fmt.Errorf("set dpi: %w", err)
	}
	return nil
}

func (t *Tesseract) recognize(c *gosseract.Client, imgPath string) (string, error) {
	if err := c.SetImage(imgPath); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// renderPage renders one PDF page to PNG with pdftoppm and returns the
// image path.
func (t *Tesseract) renderPage(ctx context.Context, pdfPath, outDir string, page int) (string, error) {
	outputPrefix := filepath.Join(outDir, fmt.Sprintf("page_%04d", page))

	pageStr := fmt.Sprintf("%d", page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprint(t.dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	imgPath := outputPrefix + ".png"
	if _, err := os.Stat(imgPath); err != nil {
		return "", fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return imgPath, nil
}
