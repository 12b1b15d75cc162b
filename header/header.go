// Package header renders packed bitplanes as C source headers.
package header

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/BeatGlow/eink/pixel"
)

// DefaultPrefix is prepended to the macro names of weather icon headers.
const DefaultPrefix = "WEATHER_ICON_"

// BytesPerLine is the number of array elements on one line of output.
const BytesPerLine = 16

// Errors
var (
	ErrInvalidName = errors.New("header: array name is not a valid C identifier")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Header describes one generated header file.
type Header struct {
	// Name of the byte array, also used (upper cased) in the macro names.
	Name string

	// Prefix for the include guard and dimension macros.
	Prefix string

	// Comment placed at the top of the file. Empty uses DefaultComment.
	Comment string

	Format pixel.Format
	Width  int
	Height int
	Data   []byte
}

// New returns a Header for a packed buffer.
func New(name, prefix string, p *pixel.Packed) *Header {
	return &Header{
		Name:   name,
		Prefix: prefix,
		Format: p.Format,
		Width:  p.Width,
		Height: p.Height,
		Data:   p.Data,
	}
}

// DefaultComment describes a buffer of format f and dimensions w x h.
func DefaultComment(f pixel.Format, w, h int) string {
	switch f {
	case pixel.TwoBit:
		return fmt.Sprintf("4-gray %dx%d E-ink icon, column-major, 2bpp. White background.", w, h)
	default:
		return fmt.Sprintf("1-bit %dx%d E-ink icon, row-major, 8 px/byte. White background.", w, h)
	}
}

// Validate checks the array name and the comment.
func (h *Header) Validate() error {
	if !identifier.MatchString(h.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, h.Name)
	}
	if p := h.Prefix; p != "" && !identifier.MatchString(p) {
		return fmt.Errorf("%w: prefix %q", ErrInvalidName, p)
	}
	if strings.Contains(h.Comment, "*/") {
		return fmt.Errorf("header: comment of %s may not contain \"*/\"", h.Name)
	}
	return nil
}

// Macro is the upper cased name shared by the include guard and dimension macros.
func (h *Header) Macro() string {
	return h.Prefix + strings.ToUpper(h.Name)
}

// Lines returns the array body, BytesPerLine values per line.
func (h *Header) Lines() []string {
	lines := make([]string, 0, (len(h.Data)+BytesPerLine-1)/BytesPerLine)
	for i := 0; i < len(h.Data); i += BytesPerLine {
		end := i + BytesPerLine
		if end > len(h.Data) {
			end = len(h.Data)
		}
		values := make([]string, 0, end-i)
		for _, b := range h.Data[i:end] {
			values = append(values, fmt.Sprintf("0x%02X", b))
		}
		lines = append(lines, strings.Join(values, ", "))
	}
	return lines
}

var tmpl = template.Must(template.New("header").Parse(`/* {{ .Comment }} */
#ifndef {{ .Macro }}_H_
#define {{ .Macro }}_H_

#define {{ .Macro }}_W {{ .Width }}
#define {{ .Macro }}_H {{ .Height }}

const unsigned char {{ .Name }}[{{ len .Data }}] = {
{{- range .Lines }}
  {{ . }},
{{- end }}
};

#endif
`))

// WriteTo renders the header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	if err := h.Validate(); err != nil {
		return 0, err
	}
	view := *h
	if view.Comment == "" {
		view.Comment = DefaultComment(h.Format, h.Width, h.Height)
	}
	cw := &countWriter{w: w}
	if err := tmpl.Execute(cw, &view); err != nil {
		return cw.n, fmt.Errorf("header: error writing %s: %w", h.Name, err)
	}
	return cw.n, nil
}

// String renders the header, returning an empty string if it is invalid.
func (h *Header) String() string {
	var b strings.Builder
	if _, err := h.WriteTo(&b); err != nil {
		return ""
	}
	return b.String()
}

type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Sanitize turns a file base name into an array name: anything that is not a letter, digit
// or underscore becomes an underscore, a leading digit gets an underscore prefix and the
// result is lower cased.
func Sanitize(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}
