package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Brownie44l1/plant-classifier/internal/model"
	"github.com/Brownie44l1/plant-classifier/internal/storage"
)

const defaultMaxUploadBytes = 32 << 20

// Result is what the results page shows.
type Result struct {
	Filename      string
	URL           string
	Label         string
	Confidence    string
	Index         int
	Probabilities []float32
}

// Pipeline turns an uploaded image into a labelled prediction.
type Pipeline struct {
	classifier model.Classifier
	storage    storage.ObjectStorage
	imageSize  int
	resample   Interpolation
	maxUpload  int64
	now        func() time.Time
}

type Option func(*Pipeline)

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithImageSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.imageSize = size
		}
	}
}

// WithInterpolation picks the resampling filter used to reach the model's
// input size. Nearest is the default.
func WithInterpolation(interp Interpolation) Option {
	return func(p *Pipeline) {
		if interp != "" {
			p.resample = interp
		}
	}
}

// WithMaxUploadBytes caps how many bytes of the uploaded file are read.
func WithMaxUploadBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxUpload = n
		}
	}
}

// New wires a pipeline. classifier may be nil when the model failed to
// load; every prediction then fails with ErrModelUnavailable.
func New(classifier model.Classifier, store storage.ObjectStorage, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		storage:    store,
		imageSize:  DefaultImageSize,
		resample:   InterpolationNearest,
		maxUpload:  defaultMaxUploadBytes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Ready() bool {
	return p.classifier != nil
}

func (p *Pipeline) Classes() []string {
	if p.classifier == nil {
		return nil
	}
	return p.classifier.Classes()
}

// Run handles one /predict submission end to end.
func (p *Pipeline) Run(ctx context.Context, r *http.Request) (*Result, error) {
	if p.classifier == nil {
		return nil, ErrModelUnavailable
	}

	upload, err := Intake(r, p.maxUpload)
	if err != nil {
		return nil, err
	}

	return p.Predict(ctx, upload)
}

// Predict saves, decodes and classifies an upload that already passed intake.
func (p *Pipeline) Predict(ctx context.Context, upload *Upload) (*Result, error) {
	if p.classifier == nil {
		return nil, ErrModelUnavailable
	}

	filename, err := p.save(ctx, upload)
	if err != nil {
		return nil, wrap(StageSave, err)
	}

	input, err := p.load(ctx, filename)
	if err != nil {
		return nil, wrap(StageDecode, err)
	}

	probs, err := p.classifier.Predict(ctx, input)
	if err != nil {
		return nil, wrap(StageInfer, err)
	}

	sel, err := Select(probs, p.classifier.Classes())
	if err != nil {
		return nil, wrap(StageSelect, err)
	}

	log.WithFields(log.Fields{
		"filename":   filename,
		"label":      sel.Label,
		"confidence": sel.Confidence,
	}).Debug("prediction complete")

	return &Result{
		Filename:      filename,
		URL:           p.storage.GetURL(filename),
		Label:         sel.Label,
		Confidence:    sel.Confidence,
		Index:         sel.Index,
		Probabilities: probs,
	}, nil
}

func (p *Pipeline) save(ctx context.Context, upload *Upload) (string, error) {
	filename := StoredFilename(p.now(), upload.Filename)
	data := upload.Data
	if err := p.storage.Upload(ctx, filename, bytes.NewReader(data), int64(len(data)), http.DetectContentType(data)); err != nil {
		return "", err
	}
	return filename, nil
}

func (p *Pipeline) load(ctx context.Context, filename string) (model.Tensor, error) {
	rc, err := p.storage.Download(ctx, filename)
	if err != nil {
		return model.Tensor{}, err
	}
	defer rc.Close()

	img, err := Decode(rc)
	if err != nil {
		return model.Tensor{}, err
	}
	return ToTensor(img, p.imageSize, p.resample), nil
}
