// Package render draws the fixed-layout summary PNG produced after each
// refresh: a title with the refresh timestamp, the country count and the
// top five countries by estimated GDP.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/go-country-currency/internal/domain"
)

// Canvas and layout constants. Coordinates are the top-left of each line.
const (
	Width  = 1000
	Height = 500

	TopN = 5

	fontSize   = 18
	marginX    = 20
	rowX       = 40
	titleY     = 20
	totalY     = 50
	headerY    = 90
	firstRowY  = 116
	rowSpacing = 22
)

// Summary is the data shown on the image.
type Summary struct {
	RefreshedAt string
	Total       int64
	Top         []domain.Country
}

// Renderer draws summaries. It is safe for concurrent use; a font face is
// created per call.
type Renderer struct {
	font *opentype.Font
}

// NewRenderer parses the bundled Go Regular font. If parsing fails the
// renderer falls back to the fixed 7x13 bitmap face.
func NewRenderer() *Renderer {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return &Renderer{}
	}
	return &Renderer{font: f}
}

func (r *Renderer) face() (font.Face, func()) {
	if r.font != nil {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err == nil {
			return face, func() { _ = face.Close() }
		}
	}
	return basicfont.Face7x13, func() {}
}

// Render returns the PNG encoding of s.
func (r *Renderer) Render(s Summary) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face, closeFace := r.face()
	defer closeFace()

	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}
	ascent := face.Metrics().Ascent
	text := func(x, y int, str string) {
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y) + ascent}
		d.DrawString(str)
	}

	text(marginX, titleY, fmt.Sprintf("Summary (Last refreshed: %s)", s.RefreshedAt))
	text(marginX, totalY, fmt.Sprintf("Total countries: %d", s.Total))
	text(marginX, headerY, "Top 5 by estimated GDP:")

	y := firstRowY
	for i, c := range s.Top {
		if i == TopN {
			break
		}
		text(rowX, y, fmt.Sprintf("%d. %s: %s", i+1, c.Name, FormatGDP(c.EstimatedGDP)))
		y += rowSpacing
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatGDP renders v with thousands separators and two decimals, or "N/A"
// for nil and zero values.
func FormatGDP(v *float64) string {
	if v == nil || *v == 0 {
		return "N/A"
	}
	return message.NewPrinter(language.English).Sprintf("%.2f", *v)
}
