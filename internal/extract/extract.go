package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"cvbuilder/internal/sanitize"
	"cvbuilder/internal/shared/storage/object"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyText       = errors.New("no text could be extracted")
)

// Result is sanitized document text plus what the sanitizer removed.
type Result struct {
	Text   string
	Report sanitize.Report
}

// ExtractText reads a stored object, extracts and sanitizes its text and
// writes a derived <key>.extracted.txt copy next to it.
func ExtractText(ctx context.Context, store object.ObjectStore, fileKey, mimeType, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return Result{}, fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Result{}, fmt.Errorf("extract text key=%s mime=%s: read: %w", fileKey, mimeType, err)
	}

	text, err := ExtractTextFromBytes(raw, mimeType, fileName)
	if err != nil {
		return Result{}, fmt.Errorf("extract text key=%s mime=%s: %w", fileKey, mimeType, err)
	}

	cleaned, report := sanitize.Clean(text)
	if cleaned == "" {
		return Result{}, fmt.Errorf("extract text key=%s: %w", fileKey, ErrEmptyText)
	}

	if _, err := store.PutKey(ctx, fileKey+".extracted.txt", "text/plain; charset=utf-8", strings.NewReader(cleaned)); err != nil {
		return Result{}, fmt.Errorf("extract text key=%s: save derived: %w", fileKey, err)
	}
	return Result{Text: cleaned, Report: report}, nil
}

// ExtractTextFromBytes extracts raw (unsanitized) text from an in-memory payload.
func ExtractTextFromBytes(data []byte, mimeType, fileName string) (string, error) {
	normalized := NormalizeMimeType(mimeType, fileName, data)
	switch normalized {
	case MimePDF:
		return extractPDF(data)
	case MimeDOCX:
		return extractDOCX(data)
	case MimeText:
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, normalized)
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocxXML(doc.Editable().GetContent()), nil
}

// stripDocxXML keeps run text and field instructions and turns paragraph,
// break and tab elements into whitespace.
func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	decoder.Strict = false
	var buf strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return strings.TrimSpace(buf.String())
		}
		switch t := tok.(type) {
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "t", "instrText":
				inText = true
			case "tab":
				buf.WriteString("\t")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t", "instrText":
				inText = false
			case "p", "br":
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// NormalizeMimeType maps browser-supplied content types onto the ones we can
// extract, using the file extension and zip contents when the type is generic.
func NormalizeMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case MimePDF, MimeDOCX, MimeText:
		return clean
	case "text/markdown":
		return MimeText
	case "", "application/octet-stream", "application/zip", "application/x-zip-compressed":
	default:
		return clean
	}

	if isOOXMLDocument(data) {
		return MimeDOCX
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	case ".txt", ".md":
		return MimeText
	}
	if clean == "" {
		return "application/octet-stream"
	}
	return clean
}

func isOOXMLDocument(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
