package pipeline

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/plant-classifier/internal/model"
)

// DefaultImageSize is the square edge the classifier was trained on.
const DefaultImageSize = 128

// Interpolation names the filter used to resample an upload.
type Interpolation string

const (
	InterpolationNearest  Interpolation = "nearest"
	InterpolationBilinear Interpolation = "bilinear"
	InterpolationBicubic  Interpolation = "bicubic"
	InterpolationLanczos  Interpolation = "lanczos"
)

// ParseInterpolation accepts the config spelling of a filter. Empty means
// nearest.
func ParseInterpolation(s string) (Interpolation, error) {
	switch interp := Interpolation(strings.ToLower(strings.TrimSpace(s))); interp {
	case "", InterpolationNearest:
		return InterpolationNearest, nil
	case InterpolationBilinear, InterpolationBicubic, InterpolationLanczos:
		return interp, nil
	default:
		return "", fmt.Errorf("unknown interpolation %q", s)
	}
}

// Decode reads any registered image format.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Resize scales img to size×size without cropping.
//
// Nearest samples output pixel x from source column floor((x+0.5)*w/size),
// the same grid Keras' load_img uses by default. The smoother filters go
// through nfnt/resize.
func Resize(img image.Image, size int, interp Interpolation) image.Image {
	switch interp {
	case InterpolationBilinear:
		return resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	case InterpolationBicubic:
		return resize.Resize(uint(size), uint(size), img, resize.Bicubic)
	case InterpolationLanczos:
		return resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ToTensor resizes img and packs it as a [1,size,size,3] NHWC batch.
//
// Values stay in [0,255]. The model rescales in its first layer, so
// normalising here would silently shift every prediction.
func ToTensor(img image.Image, size int, interp Interpolation) model.Tensor {
	resized := Resize(img, size, interp)

	bounds := resized.Bounds()
	data := make([]float32, 0, size*size*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// NRGBA keeps colour channels un-premultiplied, so a
			// translucent pixel drops its alpha without darkening.
			px := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			data = append(data, float32(px.R), float32(px.G), float32(px.B))
		}
	}

	return model.Tensor{
		Shape: []int64{1, int64(size), int64(size), 3},
		Data:  data,
	}
}
