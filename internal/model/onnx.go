package model

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXClassifier runs an ONNX Runtime session over pre-allocated tensors.
// The tensors are shared, so Predict holds mu for copy-in, run and copy-out.
type ONNXClassifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewONNXClassifier(modelPath, libraryPath string, meta Metadata, threads int) (*ONNXClassifier, error) {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if threads > 0 {
		if err := options.SetIntraOpNumThreads(threads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXClassifier{
		session:      session,
		Metadata:     meta,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *ONNXClassifier) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.Metadata.Layout == LayoutNCHW {
		repacked, err := ToNCHW(input)
		if err != nil {
			return nil, err
		}
		input = repacked
	}

	if !equalShape(input.Shape, c.Metadata.InputShape) {
		return nil, fmt.Errorf("input shape %v does not match model input %v", input.Shape, c.Metadata.InputShape)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy(c.inputTensor.GetData(), input.Data)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	return append([]float32(nil), c.outputTensor.GetData()...), nil
}

func (c *ONNXClassifier) Classes() []string {
	return c.Metadata.Classes
}

func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputTensor != nil {
		c.inputTensor.Destroy()
		c.inputTensor = nil
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
		c.outputTensor = nil
	}
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	return ort.DestroyEnvironment()
}
