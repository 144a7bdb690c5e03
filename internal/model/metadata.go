package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultMetadata builds metadata for a channels-last binary classifier
// when the artifact ships without a sidecar.
func DefaultMetadata(imageSize int, classes []string) Metadata {
	size := int64(imageSize)
	return Metadata{
		InputShape:  []int64{1, size, size, 3},
		OutputShape: []int64{1, int64(len(classes))},
		InputName:   "input",
		OutputName:  "output",
		Classes:     append([]string(nil), classes...),
		ImageSize:   imageSize,
		Layout:      LayoutNHWC,
	}
}

// LoadMetadata reads the sidecar at path. Fields the sidecar leaves empty
// are filled from the defaults derived from imageSize and classes.
// A missing sidecar is not an error.
func LoadMetadata(path string, imageSize int, classes []string) (Metadata, error) {
	meta := DefaultMetadata(imageSize, classes)
	if path == "" {
		return meta, meta.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("path", path).Warn("model metadata not found, using configured class list")
			return meta, meta.Validate()
		}
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var file Metadata
	if err := json.Unmarshal(raw, &file); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if len(file.Classes) > 0 {
		meta.Classes = file.Classes
		meta.OutputShape = []int64{1, int64(len(file.Classes))}
	}
	if file.ImageSize > 0 && file.ImageSize != imageSize {
		return Metadata{}, fmt.Errorf("metadata: image size %d does not match configured %d", file.ImageSize, imageSize)
	}
	if file.Layout != "" {
		meta.Layout = strings.ToLower(file.Layout)
	}
	if len(file.InputShape) > 0 {
		meta.InputShape = file.InputShape
	} else {
		meta.InputShape = inputShape(meta.Layout, meta.ImageSize)
	}
	if len(file.OutputShape) > 0 {
		meta.OutputShape = file.OutputShape
	}
	if file.InputName != "" {
		meta.InputName = file.InputName
	}
	if file.OutputName != "" {
		meta.OutputName = file.OutputName
	}

	return meta, meta.Validate()
}

func inputShape(layout string, size int) []int64 {
	s := int64(size)
	if layout == LayoutNCHW {
		return []int64{1, 3, s, s}
	}
	return []int64{1, s, s, 3}
}

// Validate checks that the shapes describe a batch of one RGB image and
// that the output width matches the class list.
func (m Metadata) Validate() error {
	if len(m.Classes) < 2 {
		return fmt.Errorf("metadata: need at least 2 classes, got %d", len(m.Classes))
	}
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("metadata: unknown layout %q", m.Layout)
	}

	want := inputShape(m.Layout, m.ImageSize)
	if !equalShape(m.InputShape, want) {
		return fmt.Errorf("metadata: input shape %v does not match %s image of size %d", m.InputShape, m.Layout, m.ImageSize)
	}

	if len(m.OutputShape) != 2 || m.OutputShape[0] != 1 {
		return fmt.Errorf("metadata: output shape %v is not a batch of one vector", m.OutputShape)
	}
	if m.OutputShape[1] != int64(len(m.Classes)) {
		return fmt.Errorf("metadata: output width %d does not match %d classes", m.OutputShape[1], len(m.Classes))
	}
	return nil
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumElements returns the element count of shape.
func NumElements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
