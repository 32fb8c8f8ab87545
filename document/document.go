// Package document loads markdown from files, stdin and URLs and breaks it
// into speakable blocks for the reader.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}

// Document is one loaded markdown document.
type Document struct {
	// Path is the absolute file path, empty for stdin and URLs.
	Path string
	// URL is the source URL when loaded over HTTP.
	URL string
	// Body is the markdown text with any frontmatter removed.
	Body string
	// FromStdin marks documents piped in, which cannot be reloaded.
	FromStdin bool
}

// Title returns the first top-level heading, or the file name, or a
// placeholder for stdin.
func (d *Document) Title() string {
	for _, line := range strings.Split(d.Body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	if d.Path != "" {
		return filepath.Base(d.Path)
	}
	if d.URL != "" {
		return d.URL
	}
	return "(stdin)"
}

// Load resolves an argument into a document: "-" reads stdin, an http(s)
// URL is fetched, a directory is searched for a readme, anything else is
// opened as a file. An empty argument means the current directory.
func Load(arg string) (*Document, error) {
	if arg == "-" {
		return FromReader(os.Stdin)
	}

	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		return fetch(u.String())
	}

	if arg == "" {
		arg = "."
	}
	st, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", arg, err)
	}
	if st.IsDir() {
		return loadReadme(arg)
	}
	return loadFile(arg)
}

// FromReader reads a whole document from r, treating it as piped input.
func FromReader(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read input: %w", err)
	}
	return &Document{Body: string(stripFrontmatter(b)), FromStdin: true}, nil
}

func fetch(u string) (*Document, error) {
	resp, err := http.Get(u) //nolint:noctx
	if err != nil {
		return nil, fmt.Errorf("unable to get url: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response: %w", err)
	}
	return &Document{URL: u, Body: string(stripFrontmatter(b))}, nil
}

func loadFile(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &Document{Path: abs, Body: string(stripFrontmatter(b))}, nil
}

func loadReadme(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read directory: %w", err)
	}
	for _, name := range readmeNames {
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(e.Name(), name) {
				continue
			}
			return loadFile(filepath.Join(dir, e.Name()))
		}
	}
	return nil, errors.New("no readme found in directory")
}

// stripFrontmatter drops a leading YAML frontmatter fence so metadata is
// neither rendered nor spoken.
func stripFrontmatter(b []byte) []byte {
	const fence = "---"
	trimmed := bytes.TrimLeft(b, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(fence)) {
		return b
	}
	rest := trimmed[len(fence):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		return b
	}
	if i := bytes.Index(rest, []byte("\n"+fence)); i >= 0 {
		after := rest[i+1+len(fence):]
		if j := bytes.IndexByte(after, '\n'); j >= 0 {
			return after[j+1:]
		}
		return nil
	}
	return b
}
