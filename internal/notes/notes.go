// Package notes reads free-text patient descriptions for report generation.
package notes

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/clinsight-cli/internal/dataset"
	"golang.org/x/text/unicode/norm"
)

// Format extracts plain text from one kind of document.
type Format interface {
	CanRead(filename string) bool
	Extract(content []byte, encoding string) (string, error)
}

var formats []Format

// Register adds a format; later registrations are tried last.
func Register(f Format) { formats = append(formats, f) }

// ErrEmpty is returned when a document holds no text.
var ErrEmpty = errors.New("patient text is empty")

// ReadFile extracts the text of the document at path. Unknown extensions are
// read as plain text.
func ReadFile(path, encoding string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var f Format = plainText{}
	for _, cand := range formats {
		if cand.CanRead(path) {
			f = cand
			break
		}
	}
	text, err := f.Extract(data, encoding)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return finish(text)
}

// Read extracts plain text from r, typically stdin.
func Read(r io.Reader, encoding string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text, err := plainText{}.Extract(data, encoding)
	if err != nil {
		return "", err
	}
	return finish(text)
}

func finish(text string) (string, error) {
	text = strings.TrimSpace(collapseBlankLines(norm.NFC.String(text)))
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func collapseBlankLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}

type plainText struct{}

func (plainText) CanRead(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func (plainText) Extract(content []byte, encoding string) (string, error) {
	rd, err := dataset.DecodeReader(content, encoding)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return string(b), nil
}

// wordDocument reads the body paragraphs of a .docx file.
type wordDocument struct{}

func (wordDocument) CanRead(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".docx")
}

func (wordDocument) Extract(content []byte, _ string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		defer rc.Close()
		return docxParagraphs(rc)
	}
	return "", errors.New("document.xml not found in DOCX")
}

// docxParagraphs joins w:t runs, one line per w:p; w:tab and w:br map to
// their plain-text equivalents.
func docxParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func init() {
	Register(plainText{})
	Register(wordDocument{})
}
