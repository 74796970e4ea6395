package service

import (
	"bytes"
	"fmt"
	"strings"

	"documind-api/internal/domain"

	"github.com/gen2brain/go-fitz"
)

var pdfMagic = []byte("%PDF-")

// PDFProcessor opens uploads with MuPDF to make sure they are readable PDFs.
type PDFProcessor struct {
	logger domain.Logger
}

func NewPDFProcessor(logger domain.Logger) *PDFProcessor {
	return &PDFProcessor{
		logger: logger,
	}
}

// Inspect returns the page count and document metadata, or ErrInvalidFile when
// the bytes are not a PDF MuPDF can open.
func (p *PDFProcessor) Inspect(data []byte) (*domain.PDFInfo, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, fmt.Errorf("%w: missing PDF header", domain.ErrInvalidFile)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFile, err)
	}
	defer doc.Close()

	info := &domain.PDFInfo{PageCount: doc.NumPage()}
	if info.PageCount <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", domain.ErrInvalidFile)
	}

	meta := doc.Metadata()
	info.Title = strings.TrimSpace(meta["title"])
	info.Author = strings.TrimSpace(meta["author"])

	p.logger.Debug("PDF inspected", "page_count", info.PageCount, "title", info.Title)
	return info, nil
}
