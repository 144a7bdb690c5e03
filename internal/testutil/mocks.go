package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/plant-classifier/internal/model"
)

// MockClassifier is a mock of model.Classifier.
type MockClassifier struct {
	mock.Mock
	ClassNames []string
}

func NewMockClassifier(classes ...string) *MockClassifier {
	if len(classes) == 0 {
		classes = []string{"Sehat", "Sakit"}
	}
	return &MockClassifier{ClassNames: classes}
}

func (m *MockClassifier) Predict(ctx context.Context, input model.Tensor) ([]float32, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockClassifier) Classes() []string {
	return m.ClassNames
}

func (m *MockClassifier) Close() error {
	return nil
}

// LastInput returns the tensor passed to the most recent Predict call.
func (m *MockClassifier) LastInput(t *testing.T) model.Tensor {
	t.Helper()
	require.NotEmpty(t, m.Calls, "Predict was never called")
	return m.Calls[len(m.Calls)-1].Arguments.Get(1).(model.Tensor)
}

// SolidPNG encodes a w×h PNG filled with c.
func SolidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// UploadRequest builds a multipart POST with data in field under filename.
func UploadRequest(t *testing.T, target, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, target, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// FormRequest builds a multipart POST that carries only plain fields.
func FormRequest(t *testing.T, target string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, target, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
