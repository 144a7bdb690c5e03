package model

import "fmt"

// ToNCHW repacks a channels-last batch into channels-first order.
func ToNCHW(t Tensor) (Tensor, error) {
	if len(t.Shape) != 4 {
		return Tensor{}, fmt.Errorf("expected rank 4 tensor, got shape %v", t.Shape)
	}
	n, h, w, c := int(t.Shape[0]), int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3])
	if len(t.Data) != n*h*w*c {
		return Tensor{}, fmt.Errorf("tensor data has %d values, shape %v needs %d", len(t.Data), t.Shape, n*h*w*c)
	}

	out := make([]float32, len(t.Data))
	plane := h * w
	for b := 0; b < n; b++ {
		base := b * plane * c
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pixel := y*w + x
				for ch := 0; ch < c; ch++ {
					out[base+ch*plane+pixel] = t.Data[base+pixel*c+ch]
				}
			}
		}
	}

	return Tensor{
		Shape: []int64{int64(n), int64(c), int64(h), int64(w)},
		Data:  out,
	}, nil
}
