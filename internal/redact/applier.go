package redact

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/nao1215/biosnap/internal/pdftext"
)

// newConfiguration returns the pdfcpu configuration used for every read and write.
// Cross-reference and object streams are disabled so the output stays readable by
// simple PDF readers.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// applied counts what applyMarks changed.
type applied struct {
	marks  int
	glyphs int
}

// applyMarks removes the text beneath every planned mark, draws the mark as an
// opaque black rectangle and returns the rewritten document.
//
// Each page with marks gets a single new content stream: the original content
// with covered glyphs removed, wrapped in q/Q, followed by one fill per mark.
func applyMarks(data []byte, pages [][]pdftext.Rect, scrubMetadata bool) ([]byte, applied, error) {
	var total applied
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, total, fmt.Errorf("read document: %w", err)
	}
	if ctx.PageCount != len(pages) {
		return nil, total, fmt.Errorf("%w: %d != %d", ErrPageMismatch, ctx.PageCount, len(pages))
	}

	for i, rects := range pages {
		glyphs, err := applyPage(ctx, i+1, rects)
		if err != nil {
			return nil, total, fmt.Errorf("page %d: %w", i+1, err)
		}
		total.marks += len(rects)
		total.glyphs += glyphs
	}

	if scrubMetadata {
		if err := scrubInfo(ctx); err != nil {
			return nil, total, err
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, total, fmt.Errorf("write document: %w", err)
	}
	return buf.Bytes(), total, nil
}

// applyPage rewrites one page and returns the number of glyphs removed.
func applyPage(ctx *model.Context, pageNr int, rects []pdftext.Rect) (int, error) {
	if len(rects) == 0 {
		return 0, nil
	}

	d, _, inherited, err := ctx.PageDict(pageNr, true)
	if err != nil {
		return 0, err
	}
	if d == nil {
		return 0, ErrMissingPage
	}

	var orig []byte
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return 0, fmt.Errorf("read content: %w", err)
	}
	if r != nil {
		if orig, err = io.ReadAll(r); err != nil {
			return 0, fmt.Errorf("read content: %w", err)
		}
	}

	stripper := newTextStripper(rects, pageFonts(ctx, pageResources(ctx, d, inherited)))
	stripped, err := stripper.strip(orig)
	if err != nil {
		return 0, fmt.Errorf("rewrite content: %w", err)
	}

	var content bytes.Buffer
	content.WriteString("q\n")
	content.Write(stripped)
	content.WriteString("Q\nq\n0 g\n")
	for _, r := range rects {
		fmt.Fprintf(&content, "%.2f %.2f %.2f %.2f re f\n", r.X0, r.Y0, r.X1-r.X0, r.Y1-r.Y0)
	}
	content.WriteString("Q\n")

	sd, err := ctx.NewStreamDictForBuf(content.Bytes())
	if err != nil {
		return 0, fmt.Errorf("new content: %w", err)
	}
	if err := sd.Encode(); err != nil {
		return 0, fmt.Errorf("encode content: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return 0, fmt.Errorf("add content: %w", err)
	}
	d.Update("Contents", *ref)

	return stripper.removed, nil
}

// pageResources returns the page's resources, including inherited ones.
func pageResources(ctx *model.Context, page types.Dict, inherited *model.InheritedPageAttrs) types.Dict {
	if inherited != nil && inherited.Resources != nil {
		return inherited.Resources
	}
	obj, ok := page.Find("Resources")
	if !ok {
		return nil
	}
	res, err := ctx.DereferenceDict(obj)
	if err != nil {
		return nil
	}
	return res
}

// scrubInfo removes identifying entries from the document information dictionary
// and drops any XMP metadata stream from the catalog.
func scrubInfo(ctx *model.Context) error {
	if ctx.Info != nil {
		info, err := ctx.DereferenceDict(*ctx.Info)
		if err != nil {
			return fmt.Errorf("info dictionary: %w", err)
		}
		for _, k := range identifyingInfoKeys {
			info.Delete(k)
		}
	}

	root, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	root.Delete("Metadata")
	return nil
}

// removeFirstPage returns data without its first page.
func removeFirstPage(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.RemovePages(bytes.NewReader(data), &buf, []string{"1"}, newConfiguration()); err != nil {
		return nil, fmt.Errorf("remove leading page: %w", err)
	}
	return buf.Bytes(), nil
}
