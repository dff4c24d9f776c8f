package web2pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Scale bounds accepted by Chrome's printToPDF.
const (
	MinScale     = 0.1
	MaxScale     = 2.0
	DefaultScale = 1.0
)

// DefaultFormat is the paper format used when neither a format nor explicit
// dimensions are given.
const DefaultFormat = "A4"

// paperSizes holds paper dimensions in inches, keyed by upper-case format name.
var paperSizes = map[string]struct {
	width  float64
	height float64
}{
	"A3":      {width: 11.69, height: 16.54},
	"A4":      {width: 8.27, height: 11.69},
	"A5":      {width: 5.83, height: 8.27},
	"LETTER":  {width: 8.5, height: 11},
	"LEGAL":   {width: 8.5, height: 14},
	"TABLOID": {width: 11, height: 17},
}

var (
	lengthPattern     = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)
	pageRangesPattern = regexp.MustCompile(`^\s*\d+(\s*-\s*\d*)?(\s*,\s*\d+(\s*-\s*\d*)?)*\s*$`)
)

// Length is a CSS-like length such as "10mm", "1in" or "96px".
// A bare JSON number is read as CSS pixels.
type Length string

// UnmarshalJSON accepts strings and numbers.
func (l *Length) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Length(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("length must be a string or a number: %w", err)
	}
	*l = Length(strconv.FormatFloat(n, 'f', -1, 64) + "px")
	return nil
}

// Inches converts the length to inches. An empty length is zero.
func (l Length) Inches() (float64, error) {
	if strings.TrimSpace(string(l)) == "" {
		return 0, nil
	}
	m := lengthPattern.FindStringSubmatch(string(l))
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid length %q", string(l))
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q: %w", string(l), err)
	}

	switch unit := strings.ToLower(m[2]); unit {
	case "", "px":
		return amount / 96.0, nil
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	default:
		return 0, fmt.Errorf("unsupported length unit %q in %q", unit, string(l))
	}
}

// Margin holds page margins.
type Margin struct {
	Top    Length `json:"top,omitempty"`
	Right  Length `json:"right,omitempty"`
	Bottom Length `json:"bottom,omitempty"`
	Left   Length `json:"left,omitempty"`
}

// PDFOptions configures the final pdf operation. Field names follow the
// pdf options of Puppeteer so existing request bodies keep working.
//
// Path is accepted on input but never honoured: the renderer always
// returns the document as bytes and Sanitized clears it.
type PDFOptions struct {
	Path                string  `json:"path,omitempty"`
	Format              string  `json:"format,omitempty"`
	Width               Length  `json:"width,omitempty"`
	Height              Length  `json:"height,omitempty"`
	Landscape           bool    `json:"landscape,omitempty"`
	PrintBackground     bool    `json:"printBackground,omitempty"`
	Scale               float64 `json:"scale,omitempty"`
	Margin              Margin  `json:"margin"`
	PageRanges          string  `json:"pageRanges,omitempty"`
	DisplayHeaderFooter bool    `json:"displayHeaderFooter,omitempty"`
	HeaderTemplate      string  `json:"headerTemplate,omitempty"`
	FooterTemplate      string  `json:"footerTemplate,omitempty"`
	PreferCSSPageSize   bool    `json:"preferCSSPageSize,omitempty"`
}

// DefaultPDFOptions returns the options used when a request carries none.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{Format: DefaultFormat}
}

// withDefaults returns o with every field left at its zero value taken from
// def. Margins merge side by side. A boolean set in def cannot be turned
// off through o.
func (o PDFOptions) withDefaults(def PDFOptions) PDFOptions {
	if o.Format == "" && o.Width == "" && o.Height == "" {
		o.Width, o.Height = def.Width, def.Height
	}
	if o.Format == "" {
		o.Format = def.Format
	}
	if o.Scale == 0 {
		o.Scale = def.Scale
	}
	if o.PageRanges == "" {
		o.PageRanges = def.PageRanges
	}
	if o.HeaderTemplate == "" {
		o.HeaderTemplate = def.HeaderTemplate
	}
	if o.FooterTemplate == "" {
		o.FooterTemplate = def.FooterTemplate
	}
	o.Margin = o.Margin.withDefaults(def.Margin)
	o.Landscape = o.Landscape || def.Landscape
	o.PrintBackground = o.PrintBackground || def.PrintBackground
	o.DisplayHeaderFooter = o.DisplayHeaderFooter || def.DisplayHeaderFooter
	o.PreferCSSPageSize = o.PreferCSSPageSize || def.PreferCSSPageSize
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	return o
}

func (m Margin) withDefaults(def Margin) Margin {
	pick := func(v, d Length) Length {
		if v == "" {
			return d
		}
		return v
	}
	return Margin{
		Top:    pick(m.Top, def.Top),
		Right:  pick(m.Right, def.Right),
		Bottom: pick(m.Bottom, def.Bottom),
		Left:   pick(m.Left, def.Left),
	}
}

// Sanitized returns a copy with the output file path removed.
func (o PDFOptions) Sanitized() PDFOptions {
	o.Path = ""
	return o
}

// Layout is PDFOptions resolved to inches.
type Layout struct {
	PaperWidth   float64
	PaperHeight  float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64
	MarginLeft   float64
	Scale        float64
}

// Layout validates the options and resolves every length to inches.
// Width and Height override the dimensions of Format; Format defaults to A4.
func (o PDFOptions) Layout() (Layout, error) {
	var l Layout

	format := strings.ToUpper(strings.TrimSpace(o.Format))
	if format == "" {
		format = DefaultFormat
	}
	size, ok := paperSizes[format]
	if !ok {
		return Layout{}, fmt.Errorf("unsupported paper format %q", o.Format)
	}
	l.PaperWidth, l.PaperHeight = size.width, size.height

	if o.Width != "" {
		w, err := o.Width.Inches()
		if err != nil {
			return Layout{}, fmt.Errorf("width: %w", err)
		}
		l.PaperWidth = w
	}
	if o.Height != "" {
		h, err := o.Height.Inches()
		if err != nil {
			return Layout{}, fmt.Errorf("height: %w", err)
		}
		l.PaperHeight = h
	}
	if l.PaperWidth <= 0 || l.PaperHeight <= 0 {
		return Layout{}, fmt.Errorf("paper dimensions must be positive, got %gx%g in", l.PaperWidth, l.PaperHeight)
	}

	margins := []struct {
		name string
		in   Length
		out  *float64
	}{
		{"margin.top", o.Margin.Top, &l.MarginTop},
		{"margin.right", o.Margin.Right, &l.MarginRight},
		{"margin.bottom", o.Margin.Bottom, &l.MarginBottom},
		{"margin.left", o.Margin.Left, &l.MarginLeft},
	}
	for _, m := range margins {
		v, err := m.in.Inches()
		if err != nil {
			return Layout{}, fmt.Errorf("%s: %w", m.name, err)
		}
		*m.out = v
	}

	l.Scale = o.Scale
	if l.Scale == 0 {
		l.Scale = DefaultScale
	}
	if l.Scale < MinScale || l.Scale > MaxScale {
		return Layout{}, fmt.Errorf("scale must be between %.1f and %.1f, got %g", MinScale, MaxScale, l.Scale)
	}

	return l, nil
}

// Validate reports whether the options can be handed to the engine.
func (o PDFOptions) Validate() error {
	if _, err := o.Layout(); err != nil {
		return err
	}
	if o.PageRanges != "" && !pageRangesPattern.MatchString(o.PageRanges) {
		return fmt.Errorf("invalid page ranges %q", o.PageRanges)
	}
	return nil
}
