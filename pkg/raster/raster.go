package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-labeler/pkg/types"
)

// Decoder turns encoded image data into rasters for the annotation editor
type Decoder struct {
	config Config
}

// Config holds configuration for the decoder
type Config struct {
	// SupportedFormats restricts accepted formats; empty accepts everything decodable
	SupportedFormats []string
}

// New creates a new Decoder accepting the formats the dataset recognizes
func New() *Decoder {
	return &Decoder{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "webp"},
		},
	}
}

// FormatsForExtensions maps file extensions such as ".jpg" to the format
// names the decoder reports. Unknown extensions are passed through without
// the dot.
func FormatsForExtensions(exts []string) []string {
	var formats []string
	seen := make(map[string]bool)
	for _, ext := range exts {
		format := strings.TrimPrefix(strings.ToLower(ext), ".")
		if format == "jpg" {
			format = "jpeg"
		}
		if format == "" || seen[format] {
			continue
		}
		seen[format] = true
		formats = append(formats, format)
	}
	return formats
}

// NewWithConfig creates a new Decoder with custom configuration
func NewWithConfig(config Config) *Decoder {
	return &Decoder{config: config}
}

// Info contains basic image metadata
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// DecodeFile loads an image from a file path
func (d *Decoder) DecodeFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}
	return d.DecodeBytes(data)
}

// Decode loads an image from a reader
func (d *Decoder) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return d.DecodeBytes(data)
}

// DecodeBytes decodes image bytes, trying the registered decoders first and
// the WebP codec as fallback. Failures wrap types.ErrImageDecode.
func (d *Decoder) DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", types.ErrImageDecode)
	}

	img, format, err := decodeRegistered(data)
	if err != nil {
		img, err = webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: unknown or unsupported format", types.ErrImageDecode)
		}
		format = "webp"
	}

	if !d.isFormatSupported(format) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", types.ErrImageDecode, format)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty raster", types.ErrImageDecode)
	}
	return img, nil
}

func decodeRegistered(data []byte) (image.Image, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

func (d *Decoder) isFormatSupported(format string) bool {
	if len(d.config.SupportedFormats) == 0 {
		return true
	}
	for _, supported := range d.config.SupportedFormats {
		if strings.EqualFold(format, supported) || (strings.EqualFold(supported, "jpg") && format == "jpeg") {
			return true
		}
	}
	return false
}

// GetInfo returns basic information about an image
func GetInfo(img image.Image) Info {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := Info{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// Dimensions returns the pixel size of img
func Dimensions(img image.Image) types.Size {
	b := img.Bounds()
	return types.Size{W: b.Dx(), H: b.Dy()}
}

// FitScale returns the uniform factor that fits original into area while
// preserving aspect ratio: min(area.W/original.W, area.H/original.H)
func FitScale(original, area types.Size) float64 {
	if original.Empty() || area.Empty() {
		return 1
	}
	sx := float64(area.W) / float64(original.W)
	sy := float64(area.H) / float64(original.H)
	if sy < sx {
		return sy
	}
	return sx
}

// Fit scales img to the display area and returns the bitmap with the factor used
func Fit(img image.Image, area types.Size) (image.Image, float64) {
	size := Dimensions(img)
	scale := FitScale(size, area)

	w := int(float64(size.W) * scale)
	h := int(float64(size.H) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == size.W && h == size.H {
		return img, scale
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), scale
}

// EncodeForModel converts an image to base64 for sending to vision models
func EncodeForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Save writes img to path, picking the codec from the extension
func Save(img image.Image, path string, quality int) error {
	low := strings.ToLower(path)
	switch {
	case strings.HasSuffix(low, ".webp"):
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	case strings.HasSuffix(low, ".png"):
		return imaging.Save(img, path)
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}
