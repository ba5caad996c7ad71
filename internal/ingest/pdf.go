package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"sintetic-qa/internal/logger"
	"sintetic-qa/models"
)

var pdfMagic = []byte("%PDF-")

// isPDF checks the leading magic bytes first and falls back to the file
// extension, so a renamed PDF is still detected.
func isPDF(raw []byte, filename string) bool {
	if bytes.HasPrefix(raw, pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// loadPDF extracts one document per page, stamped with the page number,
// the page total and whatever title and author the PDF metadata carries.
// Pages that fail text extraction are skipped, not fatal.
func loadPDF(path string) ([]models.Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	info := reader.Trailer().Key("Info")
	title := info.Key("Title").Text()
	author := info.Key("Author").Text()

	total := reader.NumPage()
	docs := make([]models.Document, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract page text, skipping page", "page", i, "error", err)
			continue
		}

		meta := map[string]string{
			models.MetaPageNumber: strconv.Itoa(i),
			models.MetaTotalPages: strconv.Itoa(total),
		}
		if title != "" {
			meta[models.MetaTitle] = title
		}
		if author != "" {
			meta[models.MetaAuthor] = author
		}
		docs = append(docs, models.Document{
			Content:  NormalizeWhitespace(text),
			Metadata: meta,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("no extractable text in pdf")
	}
	return docs, nil
}
