package model

import (
	"context"
	"time"
)

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"

	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

// Metadata describes the model artifact. It is stored as a JSON sidecar
// next to the model so the class order travels with the weights.
type Metadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
	Layout      string   `json:"layout"`
}

// Tensor is a dense float32 batch. Data is laid out row-major over Shape.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Classifier runs a batch of one image through a loaded model.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Predict returns the output probability vector for the single image in input.
	// input is always NHWC with raw pixel intensities in [0, 255].
	Predict(ctx context.Context, input Tensor) ([]float32, error)
	Classes() []string
	Close() error
}

type Config struct {
	Backend      string
	Path         string
	MetadataPath string
	LibraryPath  string
	Classes      []string
	ImageSize    int
	Threads      int
	Remote       RemoteConfig
}

type RemoteConfig struct {
	URL     string
	Name    string
	Timeout time.Duration
}
