package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where exports land when no path is given.
var DefaultDir = filepath.Join("output", "subreddits")

// CSVHeader is the single column title of the CSV export.
const CSVHeader = "Subreddits"

// ErrNothingToExport is returned for an empty list; the target is not touched.
var ErrNothingToExport = errors.New("no subreddits to output")

type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

var formats = []Format{FormatText, FormatCSV, FormatJSON, FormatYAML, FormatHTML}

func Formats() []Format {
	return append([]Format(nil), formats...)
}

func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "txt", "text":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// DefaultPath returns <dir>/subreddits.<format>, using DefaultDir when dir is empty.
func DefaultPath(dir string, format Format) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, "subreddits."+string(format))
}

// Meta is carried by the structured formats only.
type Meta struct {
	Username   string
	Source     string
	ExportedAt time.Time
}

type document struct {
	Username   string    `json:"username,omitempty" yaml:"username,omitempty"`
	Source     string    `json:"source,omitempty" yaml:"source,omitempty"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Count      int       `json:"count" yaml:"count"`
	Subreddits []string  `json:"subreddits" yaml:"subreddits"`
}

// Write renders names in format and replaces the file at path, creating
// parent directories. The write is not atomic.
func Write(format Format, path string, names []string, meta Meta) error {
	if len(names) == 0 {
		return ErrNothingToExport
	}
	if path == "" {
		return fmt.Errorf("export path is required")
	}

	data, err := Render(format, names, meta)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Render produces the file contents without touching disk.
func Render(format Format, names []string, meta Meta) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(strings.Join(names, "\n")), nil
	case FormatCSV:
		return renderCSV(names)
	case FormatJSON:
		data, err := json.MarshalIndent(newDocument(names, meta), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal json export: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(newDocument(names, meta))
		if err != nil {
			return nil, fmt.Errorf("marshal yaml export: %w", err)
		}
		return data, nil
	case FormatHTML:
		return renderHTML(names, meta)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func newDocument(names []string, meta Meta) document {
	exportedAt := meta.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now()
	}
	return document{
		Username:   meta.Username,
		Source:     meta.Source,
		ExportedAt: exportedAt.UTC(),
		Count:      len(names),
		Subreddits: names,
	}
}

func renderCSV(names []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write([]string{CSVHeader}); err != nil {
		return nil, err
	}
	for _, name := range names {
		if err := w.Write([]string{name}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv export: %w", err)
	}
	return buf.Bytes(), nil
}

func renderHTML(names []string, meta Meta) ([]byte, error) {
	var md strings.Builder
	title := "Subreddits"
	if meta.Username != "" {
		title = fmt.Sprintf("Subreddits for u/%s", meta.Username)
	}
	fmt.Fprintf(&md, "# %s\n\n", title)
	for _, name := range names {
		fmt.Fprintf(&md, "- [r/%s](https://www.reddit.com/r/%s/)\n", name, name)
	}

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(md.String()), &body); err != nil {
		return nil, fmt.Errorf("render html export: %w", err)
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>")
	out.WriteString(title)
	out.WriteString("</title></head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// ReadText reads a text export back, one name per line. Line terminators
// (\n or \r\n) are stripped and nothing else is trimmed.
func ReadText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return names, nil
}
