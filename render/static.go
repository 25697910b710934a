package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed static/*.md
var staticFS embed.FS

// StaticDoc is bundled marketing copy served while the content backend is
// bypassed.
type StaticDoc struct {
	Slug        string
	Title       string
	Summary     string
	Description string
	Body        template.HTML
}

type staticMatter struct {
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`
}

func newMarkdown() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

func loadStaticDocs(fsys fs.FS, md goldmark.Markdown) (map[string]StaticDoc, error) {
	files, err := fs.Glob(fsys, "static/*.md")
	if err != nil {
		return nil, err
	}

	titleCaser := cases.Title(language.English)
	docs := make(map[string]StaticDoc, len(files))
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		var matter staticMatter
		body, err := frontmatter.Parse(bytes.NewReader(raw), &matter)
		if err != nil {
			return nil, fmt.Errorf("parsing frontmatter of %s: %w", file, err)
		}

		var html bytes.Buffer
		if err := md.Convert(body, &html); err != nil {
			return nil, fmt.Errorf("converting %s: %w", file, err)
		}

		slug := strings.TrimSuffix(path.Base(file), ".md")
		if matter.Title == "" {
			matter.Title = titleCaser.String(strings.ReplaceAll(slug, "-", " "))
		}

		docs[slug] = StaticDoc{
			Slug:        slug,
			Title:       matter.Title,
			Summary:     matter.Summary,
			Description: matter.Description,
			Body:        template.HTML(html.String()), //nolint:gosec
		}
	}
	return docs, nil
}
