package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/plant-classifier/internal/pipeline"
	"github.com/Brownie44l1/plant-classifier/internal/storage"
	"github.com/Brownie44l1/plant-classifier/internal/testutil"
)

const predictURL = "http://localhost/predict"

func fixedClock() time.Time {
	return time.Unix(1700000000, 0)
}

func setupPipeline(t *testing.T) (*testutil.MockClassifier, *pipeline.Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/static/uploads")
	require.NoError(t, err)

	clf := testutil.NewMockClassifier()
	p := pipeline.New(clf, store, pipeline.WithClock(fixedClock))
	return clf, p, dir
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_RedSquare(t *testing.T) {
	clf, p, dir := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.25, 0.75}, nil)

	red := testutil.SolidPNG(t, 10, 10, color.RGBA{R: 255, A: 255})
	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "red.png", red)

	result, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^\d+_red\.png$`), result.Filename)
	assert.Equal(t, "1700000000_red.png", result.Filename)
	assert.Equal(t, "/static/uploads/1700000000_red.png", result.URL)
	assert.Equal(t, "Sakit", result.Label)
	assert.Equal(t, "75.00", result.Confidence)
	assert.Equal(t, 1, result.Index)

	saved, err := os.ReadFile(filepath.Join(dir, result.Filename))
	require.NoError(t, err)
	assert.Equal(t, red, saved)

	input := clf.LastInput(t)
	assert.Equal(t, []int64{1, 128, 128, 3}, input.Shape)
	require.Len(t, input.Data, 128*128*3)
	for i := 0; i < len(input.Data); i += 3 {
		require.Equal(t, float32(255), input.Data[i], "red at %d", i)
		require.Equal(t, float32(0), input.Data[i+1], "green at %d", i)
		require.Equal(t, float32(0), input.Data[i+2], "blue at %d", i)
	}
}

// The model rescales internally; the pipeline must hand it raw intensities.
func TestRun_PassesUnnormalizedPixels(t *testing.T) {
	clf, p, _ := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.9, 0.1}, nil)

	img := testutil.SolidPNG(t, 4, 4, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	_, err := p.Run(context.Background(), testutil.UploadRequest(t, predictURL, pipeline.FormField, "leaf.png", img))
	require.NoError(t, err)

	var maxVal float32
	for _, v := range clf.LastInput(t).Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(255))
		if v > maxVal {
			maxVal = v
		}
	}
	assert.Equal(t, float32(200), maxVal)
}

func TestRun_MissingFile(t *testing.T) {
	clf, p, dir := setupPipeline(t)

	req := testutil.FormRequest(t, predictURL, map[string]string{"note": "no image here"})
	_, err := p.Run(context.Background(), req)

	assert.ErrorIs(t, err, pipeline.ErrMissingFile)
	assert.Equal(t, "no file uploaded", err.Error())
	assertDirEmpty(t, dir)
	clf.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestRun_NotMultipart(t *testing.T) {
	_, p, dir := setupPipeline(t)

	req, err := http.NewRequest(http.MethodPost, predictURL, strings.NewReader("file=x"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = p.Run(context.Background(), req)
	assert.ErrorIs(t, err, pipeline.ErrMissingFile)
	assertDirEmpty(t, dir)
}

func TestRun_EmptyFilename(t *testing.T) {
	clf, p, dir := setupPipeline(t)

	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "", nil)
	_, err := p.Run(context.Background(), req)

	assert.ErrorIs(t, err, pipeline.ErrEmptyFilename)
	assert.Equal(t, "empty filename", err.Error())
	assertDirEmpty(t, dir)
	clf.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

// A part named "file" with no filename parameter is an ordinary form value.
func TestRun_FileFieldWithoutFilenameParam(t *testing.T) {
	clf, p, dir := setupPipeline(t)

	req := testutil.FormRequest(t, predictURL, map[string]string{pipeline.FormField: "leaf.png"})
	_, err := p.Run(context.Background(), req)

	assert.ErrorIs(t, err, pipeline.ErrMissingFile)
	assertDirEmpty(t, dir)
	clf.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestRun_SkipsPlainValueBeforeFile(t *testing.T) {
	clf, p, dir := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.8, 0.2}, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(pipeline.FormField, "not a file"))
	part, err := mw.CreateFormFile(pipeline.FormField, "leaf.png")
	require.NoError(t, err)
	_, err = part.Write(testutil.SolidPNG(t, 4, 4, color.White))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, predictURL, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	result, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1700000000_leaf.png", result.Filename)
	assert.Equal(t, "Sehat", result.Label)
	assert.FileExists(t, filepath.Join(dir, result.Filename))
}

func TestRun_UploadOverLimit(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/static/uploads")
	require.NoError(t, err)
	clf := testutil.NewMockClassifier()
	p := pipeline.New(clf, store, pipeline.WithClock(fixedClock), pipeline.WithMaxUploadBytes(64))

	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "big.png", make([]byte, 65))
	_, err = p.Run(context.Background(), req)

	var maxBytesErr *http.MaxBytesError
	require.True(t, errors.As(err, &maxBytesErr))
	assert.Equal(t, int64(64), maxBytesErr.Limit)
	assertDirEmpty(t, dir)
}

func TestRun_ModelUnavailable(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir, "/static/uploads")
	require.NoError(t, err)
	p := pipeline.New(nil, store)

	assert.False(t, p.Ready())
	assert.Nil(t, p.Classes())

	requests := []*http.Request{
		testutil.UploadRequest(t, predictURL, pipeline.FormField, "red.png", testutil.SolidPNG(t, 2, 2, color.White)),
		testutil.UploadRequest(t, predictURL, pipeline.FormField, "", nil),
		testutil.FormRequest(t, predictURL, nil),
	}
	for _, req := range requests {
		_, err := p.Run(context.Background(), req)
		assert.ErrorIs(t, err, pipeline.ErrModelUnavailable)
	}
	assertDirEmpty(t, dir)
}

func TestRun_NonImageBytes(t *testing.T) {
	clf, p, _ := setupPipeline(t)

	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "notes.txt", []byte("definitely not pixels"))
	_, err := p.Run(context.Background(), req)
	require.Error(t, err)

	var predErr *pipeline.PredictionError
	require.True(t, errors.As(err, &predErr))
	assert.Equal(t, pipeline.StageDecode, predErr.Stage)
	assert.ErrorIs(t, err, pipeline.ErrDecode)
	assert.True(t, strings.HasPrefix(err.Error(), "prediction failed: "))
	clf.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestRun_InferenceError(t *testing.T) {
	clf, p, _ := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("session exploded"))

	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "leaf.png", testutil.SolidPNG(t, 8, 8, color.Black))
	_, err := p.Run(context.Background(), req)

	var predErr *pipeline.PredictionError
	require.True(t, errors.As(err, &predErr))
	assert.Equal(t, pipeline.StageInfer, predErr.Stage)
	assert.Equal(t, "prediction failed: session exploded", err.Error())
}

func TestRun_OutputWidthMismatch(t *testing.T) {
	clf, p, _ := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.2, 0.3, 0.5}, nil)

	req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "leaf.png", testutil.SolidPNG(t, 8, 8, color.Black))
	_, err := p.Run(context.Background(), req)

	var predErr *pipeline.PredictionError
	require.True(t, errors.As(err, &predErr))
	assert.Equal(t, pipeline.StageSelect, predErr.Stage)
}

func TestRun_SameBytesDifferentNames(t *testing.T) {
	clf, p, _ := setupPipeline(t)
	clf.On("Predict", mock.Anything, mock.Anything).Return([]float32{0.6125, 0.3875}, nil)

	img := testutil.SolidPNG(t, 16, 9, color.RGBA{R: 30, G: 160, B: 40, A: 255})

	first, err := p.Run(context.Background(), testutil.UploadRequest(t, predictURL, pipeline.FormField, "a.png", img))
	require.NoError(t, err)
	firstInput := clf.LastInput(t)

	second, err := p.Run(context.Background(), testutil.UploadRequest(t, predictURL, pipeline.FormField, "b.png", img))
	require.NoError(t, err)
	secondInput := clf.LastInput(t)

	assert.NotEqual(t, first.Filename, second.Filename)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, firstInput, secondInput)
}

func TestRun_LabelAlwaysFromClassList(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}, {0.0001, 0.9999}}
	for _, probs := range vectors {
		clf, p, _ := setupPipeline(t)
		clf.On("Predict", mock.Anything, mock.Anything).Return(probs, nil)

		req := testutil.UploadRequest(t, predictURL, pipeline.FormField, "x.png", testutil.SolidPNG(t, 3, 3, color.White))
		result, err := p.Run(context.Background(), req)
		require.NoError(t, err)

		assert.Contains(t, clf.ClassNames, result.Label)
		assert.Regexp(t, `^\d{1,3}\.\d{2}$`, result.Confidence)
	}
}

func TestStoredFilename(t *testing.T) {
	assert.Equal(t, "1700000000_red.png", pipeline.StoredFilename(fixedClock(), "red.png"))
	assert.Equal(t, "0_leaf image.jpg", pipeline.StoredFilename(time.Unix(0, 0), "leaf image.jpg"))
}
