package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"vehicle-spec-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Extractor turns a document on disk into page records.
type Extractor func(path string) ([]models.PageRecord, error)

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// ExtractPages reads the document at path and returns one record per page in
// document order. Page numbers are 0-based.
func ExtractPages(path string) ([]models.PageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", models.ErrExtraction, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", models.ErrNotFound, path)
	}

	source := filepath.Base(path)
	texts, err := extractTexts(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrExtraction, source, err)
	}

	pages := make([]models.PageRecord, len(texts))
	for i, t := range texts {
		pages[i] = NewPageRecord(source, i, t)
	}
	log.Debug().Str("source", source).Int("pages", len(pages)).Msg("Extracted document")
	return pages, nil
}

// NewPageRecord normalizes raw page text and computes its statistics.
func NewPageRecord(source string, pageNumber int, raw string) models.PageRecord {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	chars := utf8.RuneCountInString(cleaned)
	return models.PageRecord{
		SourceName:       source,
		PageNumber:       pageNumber,
		RawText:          cleaned,
		CharCount:        chars,
		WordCount:        len(strings.Split(cleaned, " ")),
		SentenceCountRaw: len(strings.Split(cleaned, ". ")),
		ApproxTokenCount: float64(chars) / models.CharsPerToken,
	}
}

// Supported reports whether path has an extension ExtractPages can read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

func extractTexts(path string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return parsePDF(path)
	case ".docx":
		return parseDOCX(path)
	case ".pptx":
		return parsePPTX(path)
	case ".xlsx", ".xlsm":
		return parseSheets(path)
	case ".md", ".markdown":
		return parseMarkdown(path)
	case ".txt":
		return parseText(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parsePDF(filePath string) (pages []string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return pages, nil
}

// parseDOCX splits the document body on explicit page breaks.
func parseDOCX(filePath string) ([]string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var pages []string
	for _, part := range strings.Split(content, `w:type="page"`) {
		pages = append(pages, extractTextFromXML(part, "w:t", "</w:p>"))
	}
	return pages, nil
}

func parsePPTX(filePath string) ([]string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		pages = append(pages, extractTextFromXML(string(data), "a:t", "</a:p>"))
	}
	return pages, nil
}

// parseSheets treats every worksheet as a page, one line per row.
func parseSheets(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		var b strings.Builder
		b.WriteString(sheetName + "\n")
		for _, row := range rows {
			b.WriteString(strings.Join(row, " ") + "\n")
		}
		pages = append(pages, b.String())
	}
	return pages, nil
}

// parseMarkdown renders the markdown AST to plain text. Thematic breaks
// (---) start a new page.
func parseMarkdown(filePath string) ([]string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var pages []string
	var b strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.ThematicBreak:
			if entering {
				pages = append(pages, b.String())
				b.Reset()
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				b.Write(node.URL(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			b.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	pages = append(pages, b.String())
	return pages, nil
}

// parseText splits plain text on form feeds.
func parseText(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	return strings.Split(string(data), "\f"), nil
}

// extractTextFromXML collects the character data of every <tag> element.
// paraEnd closes a paragraph and becomes a newline.
func extractTextFromXML(xmlContent, tag, paraEnd string) string {
	var b strings.Builder
	open := "<" + tag
	closing := "</" + tag + ">"
	for _, para := range strings.Split(xmlContent, paraEnd) {
		var line bytes.Buffer
		rest := para
		for {
			start := strings.Index(rest, open)
			if start < 0 {
				break
			}
			rest = rest[start+len(open):]
			// skip <w:tab/>, <w:tbl> and similar tags sharing the prefix
			if len(rest) == 0 || (rest[0] != '>' && rest[0] != ' ') {
				continue
			}
			gt := strings.IndexByte(rest, '>')
			if gt < 0 || (gt > 0 && rest[gt-1] == '/') {
				continue
			}
			rest = rest[gt+1:]
			end := strings.Index(rest, closing)
			if end < 0 {
				break
			}
			line.WriteString(html.UnescapeString(rest[:end]))
			rest = rest[end+len(closing):]
		}
		if line.Len() > 0 {
			b.WriteString(line.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}
