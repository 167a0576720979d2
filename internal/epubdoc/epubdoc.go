// Package epubdoc reads an EPUB package, extracts paragraph-level text
// spans from its content documents, and repackages the container with
// corrected text written back in place. Manifest, spine, and navigation
// metadata pass through untouched except that NCX nav points lacking an
// id are assigned a fresh one.
package epubdoc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/jackzampolin/redline/internal/document"
)

const (
	containerPath = "META-INF/container.xml"
	mimetypePath  = "mimetype"

	xhtmlMediaType = "application/xhtml+xml"
	ncxMediaType   = "application/x-dtbncx+xml"
)

var (
	rootfileExpr = xpath.MustCompile("//rootfile")
	itemExpr     = xpath.MustCompile("//manifest/item")
	itemrefExpr  = xpath.MustCompile("//spine/itemref")
	paraExpr     = xpath.MustCompile("//p")
	navPointExpr = xpath.MustCompile("//navPoint")
)

// entry is one raw file inside the zip container, kept in archive order.
type entry struct {
	name string
	data []byte
}

// contentDoc is a parsed XHTML spine document and its correctable
// paragraphs: <p> elements whose content is a single text node.
type contentDoc struct {
	name  string
	root  *xmlquery.Node
	paras []*xmlquery.Node
}

// Container is the parsed structural representation of an EPUB package.
type Container struct {
	path     string
	entries  []entry
	docs     map[string]*contentDoc
	docOrder []string
	ncxName  string
	ncxRoot  *xmlquery.Node
}

// Open reads and parses an EPUB file. Any structural failure — bad zip,
// missing container.xml, unparseable OPF or content document — returns
// an error wrapping document.ErrParse and no container.
func Open(filePath string) (*Container, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", document.ErrParse, filePath, err)
	}
	defer zr.Close()

	c := &Container{
		path: filePath,
		docs: make(map[string]*contentDoc),
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", document.ErrParse, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", document.ErrParse, f.Name, err)
		}
		c.entries = append(c.entries, entry{name: f.Name, data: data})
	}

	if err := c.parse(); err != nil {
		return nil, err
	}
	return c, nil
}

// parse resolves container.xml → OPF → spine content documents.
func (c *Container) parse() error {
	containerData, ok := c.entryData(containerPath)
	if !ok {
		return fmt.Errorf("%w: missing %s", document.ErrParse, containerPath)
	}
	containerDoc, err := xmlquery.Parse(bytes.NewReader(containerData))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", document.ErrParse, containerPath, err)
	}

	rootfile := xmlquery.QuerySelector(containerDoc, rootfileExpr)
	if rootfile == nil {
		return fmt.Errorf("%w: no rootfile in %s", document.ErrParse, containerPath)
	}
	opfPath := rootfile.SelectAttr("full-path")
	opfData, ok := c.entryData(opfPath)
	if !ok {
		return fmt.Errorf("%w: missing package document %s", document.ErrParse, opfPath)
	}
	opfDoc, err := xmlquery.Parse(bytes.NewReader(opfData))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", document.ErrParse, opfPath, err)
	}

	opfDir := path.Dir(opfPath)
	type manifestItem struct {
		href      string
		mediaType string
	}
	manifest := make(map[string]manifestItem)
	for _, item := range xmlquery.QuerySelectorAll(opfDoc, itemExpr) {
		manifest[item.SelectAttr("id")] = manifestItem{
			href:      item.SelectAttr("href"),
			mediaType: item.SelectAttr("media-type"),
		}
		if item.SelectAttr("media-type") == ncxMediaType {
			c.ncxName = joinEntryPath(opfDir, item.SelectAttr("href"))
		}
	}

	if c.ncxName != "" {
		if ncxData, ok := c.entryData(c.ncxName); ok {
			root, err := xmlquery.Parse(bytes.NewReader(ncxData))
			if err != nil {
				return fmt.Errorf("%w: %s: %v", document.ErrParse, c.ncxName, err)
			}
			c.ncxRoot = root
		}
	}

	for _, ref := range xmlquery.QuerySelectorAll(opfDoc, itemrefExpr) {
		item, ok := manifest[ref.SelectAttr("idref")]
		if !ok || item.mediaType != xhtmlMediaType {
			continue
		}
		name := joinEntryPath(opfDir, item.href)
		data, ok := c.entryData(name)
		if !ok {
			return fmt.Errorf("%w: spine document %s missing from archive", document.ErrParse, name)
		}
		root, err := xmlquery.Parse(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", document.ErrParse, name, err)
		}
		doc := &contentDoc{name: name, root: root}
		for _, p := range xmlquery.QuerySelectorAll(root, paraExpr) {
			if isTextOnlyParagraph(p) && strings.TrimSpace(p.FirstChild.Data) != "" {
				doc.paras = append(doc.paras, p)
			}
		}
		c.docs[name] = doc
		c.docOrder = append(c.docOrder, name)
	}

	return nil
}

// isTextOnlyParagraph reports whether p holds exactly one text node.
// Paragraphs with inline markup are left alone, matching the contract
// that only unambiguous text units are corrected.
func isTextOnlyParagraph(p *xmlquery.Node) bool {
	return p.FirstChild != nil &&
		p.FirstChild.Type == xmlquery.TextNode &&
		p.FirstChild.NextSibling == nil
}

func (c *Container) entryData(name string) ([]byte, bool) {
	for _, e := range c.entries {
		if e.name == name {
			return e.data, true
		}
	}
	return nil, false
}

func joinEntryPath(dir, href string) string {
	if dir == "." || dir == "" {
		return href
	}
	return path.Join(dir, href)
}

// ExtractSpans returns one span per correctable paragraph, in spine
// order then document order. The back-reference names the content
// document and the paragraph's ordinal within it.
func (c *Container) ExtractSpans() []document.Span {
	var spans []document.Span
	for _, name := range c.docOrder {
		for i, p := range c.docs[name].paras {
			spans = append(spans, document.Span{
				Content: strings.TrimSpace(p.FirstChild.Data),
				Ref:     document.Ref{Doc: name, Para: i},
			})
		}
	}
	return spans
}

// WriteSpans writes corrected content back into the referenced
// paragraphs. All references are validated before any write; a dangling
// one returns an error wrapping document.ErrStructuralReference and
// leaves the container untouched.
func (c *Container) WriteSpans(spans []document.Span) error {
	for _, s := range spans {
		doc, ok := c.docs[s.Ref.Doc]
		if !ok {
			return fmt.Errorf("%w: unknown document %q", document.ErrStructuralReference, s.Ref.Doc)
		}
		if s.Ref.Para < 0 || s.Ref.Para >= len(doc.paras) {
			return fmt.Errorf("%w: paragraph %d of %d in %s", document.ErrStructuralReference, s.Ref.Para, len(doc.paras), s.Ref.Doc)
		}
	}
	for _, s := range spans {
		c.docs[s.Ref.Doc].paras[s.Ref.Para].FirstChild.Data = s.Content
	}
	return nil
}
