package imageseq

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"golang.org/x/image/tiff"

	"cubemix/internal/frame"
	"cubemix/internal/lut"
)

// Containers lists the supported still formats, keyed by file extension
// without the dot.
var Containers = []string{"png", "tiff", "hdr"}

// ErrUnsupportedContainer is returned for extensions outside Containers.
var ErrUnsupportedContainer = errors.New("unsupported frame container")

// containerFor maps a file name or container name onto a container.
func containerFor(name string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		ext = strings.ToLower(strings.TrimPrefix(name, "."))
	}
	switch ext {
	case "png":
		return "png", true
	case "tif", "tiff":
		return "tiff", true
	case "hdr", "rgbe", "pic":
		return "hdr", true
	default:
		return "", false
	}
}

func decodeImage(r io.Reader, container string) (image.Image, error) {
	switch container {
	case "png":
		return png.Decode(r)
	case "tiff":
		return tiff.Decode(r)
	case "hdr":
		return rgbe.Decode(r)
	default:
		return nil, errors.Wrap(ErrUnsupportedContainer, container)
	}
}

func encodeImage(w io.Writer, m image.Image, container string) error {
	switch container {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, m)
	case "tiff":
		return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
	case "hdr":
		hm, ok := m.(hdr.Image)
		if !ok {
			hm = toHDR(fromImage(m))
		}
		return rgbe.Encode(w, hm)
	default:
		return errors.Wrap(ErrUnsupportedContainer, container)
	}
}

// fromImage converts a decoded still into a Frame. HDR images keep their
// float values; everything else is read as 16-bit non-premultiplied colour
// scaled to [0, 1]. Alpha is kept only when the image is not opaque.
func fromImage(m image.Image) *frame.Frame {
	b := m.Bounds()
	f := frame.New(b.Dx(), b.Dy())

	if hm, ok := m.(hdr.Image); ok {
		for y := 0; y < f.Height; y++ {
			row := f.Row(y)
			for x := range row {
				r, g, bl, _ := hm.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
				row[x] = lut.RGB{R: float32(r), G: float32(g), B: float32(bl)}
			}
		}
		return f
	}

	withAlpha := !isOpaque(m)
	if withAlpha {
		f.Alpha = make([]float32, len(f.Pix))
	}
	for y := 0; y < f.Height; y++ {
		row := f.Row(y)
		for x := range row {
			c := color.NRGBA64Model.Convert(m.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			row[x] = lut.RGB{R: unit16(c.R), G: unit16(c.G), B: unit16(c.B)}
			if withAlpha {
				f.Alpha[y*f.Width+x] = unit16(c.A)
			}
		}
	}
	return f
}

func isOpaque(m image.Image) bool {
	if o, ok := m.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func unit16(v uint16) float32 { return float32(v) / math.MaxUint16 }

func to16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	return uint16(v*math.MaxUint16 + 0.5)
}

// toNRGBA64 quantises f to 16 bits per channel, clamping to [0, 1].
func toNRGBA64(f *frame.Frame) *image.NRGBA64 {
	m := image.NewNRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := f.Row(y)
		for x, c := range row {
			a := uint16(math.MaxUint16)
			if f.HasAlpha() {
				a = to16(f.Alpha[y*f.Width+x])
			}
			m.SetNRGBA64(x, y, color.NRGBA64{R: to16(c.R), G: to16(c.G), B: to16(c.B), A: a})
		}
	}
	return m
}

// toHDR copies f into a float raster. Radiance files cannot store negative
// values, so those are clamped to zero; values above 1 are kept.
func toHDR(f *frame.Frame) *hdr.RGB {
	m := hdr.NewRGB(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := f.Row(y)
		for x, c := range row {
			m.SetRGB(x, y, hdrcolor.RGB{
				R: math.Max(0, float64(c.R)),
				G: math.Max(0, float64(c.G)),
				B: math.Max(0, float64(c.B)),
			})
		}
	}
	return m
}

// toImage renders f for container, scaling it down to width x height when
// those differ from the frame size. Scaling goes through a 16-bit raster, so
// HDR values above 1 are clipped on resized frames.
func toImage(f *frame.Frame, container string, width, height int) image.Image {
	resized := width != f.Width || height != f.Height
	if container == "hdr" && !resized {
		return toHDR(f)
	}
	var m image.Image = toNRGBA64(f)
	if resized {
		m = resize.Resize(uint(width), uint(height), m, resize.Lanczos3)
	}
	if container == "hdr" {
		return toHDR(fromImage(m))
	}
	return m
}
