package textextract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

var (
	// ErrUnsupportedFormat is returned for file types that cannot be extracted.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrExtraction is returned when a supported file cannot be read.
	ErrExtraction = errors.New("extraction error")
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// SupportedExtensions lists accepted upload extensions, lower case.
var SupportedExtensions = []string{".pdf", ".txt", ".docx", ".html", ".htm", ".md"}

// Extension returns the lower-cased extension of filename and whether it is supported.
func Extension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return ext, true
		}
	}
	return ext, false
}

// Extractor reads a stored file and returns its text.
type Extractor interface {
	ExtractFile(ctx context.Context, path string) (string, error)
}

type extractor struct {
	tika *TikaClient
}

// NewExtractor creates an Extractor. tika may be nil, which disables PDF.
func NewExtractor(tika *TikaClient) Extractor {
	return &extractor{tika: tika}
}

// ExtractFile dispatches on the file extension.
func (e *extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	name := filepath.Base(path)
	ext, ok := Extension(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, name, errors.Wrap(err, "failed to read file"))
	}

	var text string
	switch ext {
	case ".txt":
		text = plainText(data)
	case ".html", ".htm":
		text, err = htmlText(bytes.NewReader(data))
	case ".md":
		text, err = markdownText(data)
	case ".docx":
		text, err = docxText(data)
		if err != nil && e.tika != nil {
			text, err = e.tika.ExtractText(ctx, data, docxContentType)
		}
	case ".pdf":
		if e.tika == nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, "pdf extraction requires a Tika server")
		}
		text, err = e.tika.ExtractText(ctx, data, "application/pdf")
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrExtraction, name, err)
	}
	return text, nil
}

func plainText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}

// skippedElements never contribute text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
	"head":     true,
}

// blockElements start a new line.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "td": true, "th": true,
	"tr": true, "ul": true, "title": true,
}

type textWriter struct {
	sb strings.Builder
}

func (w *textWriter) words(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return
	}
	if n := w.sb.Len(); n > 0 {
		if last := w.sb.String()[n-1]; last != '\n' && last != ' ' {
			w.sb.WriteByte(' ')
		}
	}
	w.sb.WriteString(strings.Join(fields, " "))
}

func (w *textWriter) newline() { w.sb.WriteByte('\n') }

// tidy trims every line and drops empty ones.
func (w *textWriter) tidy() string {
	lines := strings.Split(w.sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func htmlText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}

	w := &textWriter{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			w.words(n.Data)
			return
		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if skippedElements[tag] {
				return
			}
			if tag == "br" {
				w.newline()
				return
			}
			if blockElements[tag] {
				w.newline()
				defer w.newline()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return w.tidy(), nil
}

func markdownText(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(data, &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return htmlText(&buf)
}

// docxText reads the main document part of an Office Open XML file.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "not a docx archive")
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New("docx archive has no word/document.xml")
	}

	rc, err := part.Open()
	if err != nil {
		return "", errors.Wrap(err, "failed to open document part")
	}
	defer rc.Close()

	var sb strings.Builder
	dec := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "failed to parse document part")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
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
	return strings.TrimSpace(sb.String()), nil
}
