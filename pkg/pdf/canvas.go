// Package pdf composes single page certificate documents on top of a PDF or raster
// background. All coordinates are in points with the origin at the bottom-left corner.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"
)

const (
	// SourcePDF uses the first page of an existing PDF as background.
	SourcePDF = "pdf"
	// SourceImage uses a PNG or JPEG as a full-bleed background.
	SourceImage = "image"

	fontFamily = "Helvetica"
	fontStyle  = "B"
	mediaBox   = "/MediaBox"
)

// ErrUnsupportedSource indicates a background that cannot be used as a canvas.
var ErrUnsupportedSource = errors.New("unsupported template source")

// Canvas is a single page document being composed.
type Canvas struct {
	doc    *fpdf.Fpdf
	width  float64
	height float64
	tr     func(string) string
	images int
}

// NewCanvas opens a canvas from the template bytes.
func NewCanvas(source string, template []byte) (*Canvas, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: empty template", ErrUnsupportedSource)
	}

	switch source {
	case SourcePDF:
		return newPDFCanvas(template)
	case SourceImage:
		return newImageCanvas(template)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, source)
	}
}

func newPDFCanvas(template []byte) (canvas *Canvas, err error) {
	// gofpdi panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			canvas = nil
			err = fmt.Errorf("%w: invalid pdf: %v", ErrUnsupportedSource, r)
		}
	}()

	doc := fpdf.New("P", "pt", "A4", "")
	importer := gofpdi.NewImporter()
	reader := io.ReadSeeker(bytes.NewReader(template))
	tpl := importer.ImportPageFromStream(doc, &reader, 1, mediaBox)

	box, ok := importer.GetPageSizes()[1][mediaBox]
	if !ok || box["w"] <= 0 || box["h"] <= 0 {
		return nil, fmt.Errorf("%w: first page has no media box", ErrUnsupportedSource)
	}
	width, height := box["w"], box["h"]

	prepare(doc)
	doc.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
	importer.UseImportedTemplate(doc, tpl, 0, 0, width, height)

	return newCanvas(doc, width, height)
}

func newImageCanvas(template []byte) (*Canvas, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	img, err := imaging.Decode(bytes.NewReader(template), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}

	encoded := &bytes.Buffer{}
	imageType := "PNG"
	if format == "jpeg" {
		imageType = "JPG"
		err = imaging.Encode(encoded, img, imaging.JPEG, imaging.JPEGQuality(95))
	} else {
		err = imaging.Encode(encoded, img, imaging.PNG)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to normalise template image: %w", err)
	}

	bounds := img.Bounds()
	width, height := float64(bounds.Dx()), float64(bounds.Dy())

	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: width, Ht: height},
	})
	prepare(doc)
	doc.AddPage()

	options := fpdf.ImageOptions{ImageType: imageType}
	doc.RegisterImageOptionsReader("background", options, encoded)
	doc.ImageOptions("background", 0, 0, width, height, false, options, 0, "")

	return newCanvas(doc, width, height)
}

func prepare(doc *fpdf.Fpdf) {
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCatalogSort(true)
	doc.SetTextColor(0, 0, 0)
}

func newCanvas(doc *fpdf.Fpdf, width, height float64) (*Canvas, error) {
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to prepare canvas: %w", err)
	}
	return &Canvas{
		doc:    doc,
		width:  width,
		height: height,
		tr:     doc.UnicodeTranslatorFromDescriptor(""),
	}, nil
}

// Size returns the page size in points.
func (c *Canvas) Size() (float64, float64) {
	return c.width, c.height
}

// TextWidth measures text in the bold certificate font.
func (c *Canvas) TextWidth(text string, size float64) float64 {
	c.doc.SetFont(fontFamily, fontStyle, size)
	return c.doc.GetStringWidth(c.tr(text))
}

// DrawText writes text starting at x with its baseline at y.
func (c *Canvas) DrawText(text string, x, y, size float64) {
	c.doc.SetFont(fontFamily, fontStyle, size)
	c.doc.Text(x, c.height-y, c.tr(text))
}

// DrawImage places a PNG with its lower-left corner at (x, y).
func (c *Canvas) DrawImage(png []byte, x, y, width, height float64) error {
	c.images++
	name := "overlay-" + strconv.Itoa(c.images)
	options := fpdf.ImageOptions{ImageType: "PNG"}

	c.doc.RegisterImageOptionsReader(name, options, bytes.NewReader(png))
	c.doc.ImageOptions(name, x, c.height-y-height, width, height, false, options, 0, "")
	if err := c.doc.Error(); err != nil {
		return fmt.Errorf("failed to draw image: %w", err)
	}
	return nil
}

// Bytes serialises the document with its dates pinned to stamp. Raster backgrounds give
// byte identical output for identical input. PDF backgrounds give equivalent documents:
// gofpdi emits imported dictionaries and objects in map order, so only their ordering varies.
func (c *Canvas) Bytes(stamp time.Time) ([]byte, error) {
	c.doc.SetCreationDate(stamp)
	c.doc.SetModificationDate(stamp)

	out := &bytes.Buffer{}
	if err := c.doc.Output(out); err != nil {
		return nil, fmt.Errorf("failed to serialise pdf: %w", err)
	}
	return out.Bytes(), nil
}
