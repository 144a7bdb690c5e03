package model

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteClassifier calls a TensorFlow Serving REST endpoint.
type RemoteClassifier struct {
	client  *resty.Client
	baseURL string
	name    string
	classes []string
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
	Error string `json:"error,omitempty"`
}

func NewRemoteClassifier(cfg RemoteConfig, classes []string) *RemoteClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &RemoteClassifier{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		name:    cfg.Name,
		classes: append([]string(nil), classes...),
	}
}

// CheckReady returns nil when at least one model version reports AVAILABLE.
func (c *RemoteClassifier) CheckReady(ctx context.Context) error {
	var status modelStatusResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetResult(&status).
		SetError(&status).
		Get(fmt.Sprintf("%s/v1/models/%s", c.baseURL, c.name))
	if err != nil {
		return fmt.Errorf("failed to reach model server: %w", err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		if status.Error != "" {
			return fmt.Errorf("model server error: %s", status.Error)
		}
		return fmt.Errorf("model server error: status %d", httpResp.StatusCode())
	}

	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %q has no available version", c.name)
}

func (c *RemoteClassifier) Predict(ctx context.Context, input Tensor) ([]float32, error) {
	instances, err := nestNHWC(input)
	if err != nil {
		return nil, err
	}

	var resp predictResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: instances}).
		SetResult(&resp).
		SetError(&resp).
		Post(fmt.Sprintf("%s/v1/models/%s:predict", c.baseURL, c.name))
	if err != nil {
		return nil, fmt.Errorf("failed to call model server: %w", err)
	}

	if httpResp.StatusCode() != http.StatusOK {
		if resp.Error != "" {
			return nil, fmt.Errorf("model server error: %s", resp.Error)
		}
		return nil, fmt.Errorf("model server error: status %d", httpResp.StatusCode())
	}

	if len(resp.Predictions) != 1 {
		return nil, fmt.Errorf("unexpected number of predictions: got %d, expected 1", len(resp.Predictions))
	}
	return resp.Predictions[0], nil
}

func (c *RemoteClassifier) Classes() []string {
	return c.classes
}

func (c *RemoteClassifier) Close() error {
	return nil
}

// nestNHWC turns a flat [N,H,W,C] tensor into the nested arrays
// TensorFlow Serving expects in the "instances" field.
func nestNHWC(t Tensor) ([][][][]float32, error) {
	if len(t.Shape) != 4 {
		return nil, fmt.Errorf("expected rank 4 tensor, got shape %v", t.Shape)
	}
	n, h, w, c := int(t.Shape[0]), int(t.Shape[1]), int(t.Shape[2]), int(t.Shape[3])
	if len(t.Data) != n*h*w*c {
		return nil, fmt.Errorf("tensor data has %d values, shape %v needs %d", len(t.Data), t.Shape, n*h*w*c)
	}

	out := make([][][][]float32, n)
	i := 0
	for b := range out {
		rows := make([][][]float32, h)
		for y := range rows {
			cols := make([][]float32, w)
			for x := range cols {
				cols[x] = t.Data[i : i+c : i+c]
				i += c
			}
			rows[y] = cols
		}
		out[b] = rows
	}
	return out, nil
}
