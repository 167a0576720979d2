package epubdoc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"

	"github.com/antchfx/xmlquery"
	"github.com/google/uuid"
)

// Save repackages the container to outPath. Content documents are
// re-serialized from their (possibly corrected) trees; every other
// entry is copied through verbatim. The mimetype entry is written first
// and uncompressed, as the EPUB container format requires.
func (c *Container) Save(outPath string) error {
	c.ensureNavIDs()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if data, ok := c.entryData(mimetypePath); ok {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypePath, Method: zip.Store})
		if err != nil {
			return fmt.Errorf("failed to create mimetype: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write mimetype: %w", err)
		}
	}

	for _, e := range c.entries {
		if e.name == mimetypePath {
			continue
		}
		data := e.data
		if doc, ok := c.docs[e.name]; ok {
			data = []byte(doc.root.OutputXML(false))
		} else if e.name == c.ncxName && c.ncxRoot != nil {
			data = []byte(c.ncxRoot.OutputXML(false))
		}
		w, err := zw.Create(e.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", e.name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return os.WriteFile(outPath, buf.Bytes(), 0o644)
}

// ensureNavIDs assigns a fresh identifier to NCX nav points that lack
// one. Entries that already carry an id keep it.
func (c *Container) ensureNavIDs() {
	if c.ncxName == "" || c.ncxRoot == nil {
		return
	}
	for _, np := range xmlquery.QuerySelectorAll(c.ncxRoot, navPointExpr) {
		if np.SelectAttr("id") == "" {
			np.SetAttr("id", "navpoint-"+uuid.New().String())
		}
	}
}
