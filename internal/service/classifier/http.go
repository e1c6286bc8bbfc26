package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"go.uber.org/zap"
)

// Client talks to the model-serving sidecar that hosts the trained bias,
// legal-issue and urgency pipelines.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type PredictRequest struct {
	Text string `json:"text"`
}

type PredictResponse struct {
	Label string `json:"label"`
}

func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ClassifierConfig.HTTPTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// For returns a LocalClassifier bound to one category.
func (c *Client) For(category string) *HTTPClassifier {
	return &HTTPClassifier{client: c, category: category}
}

// Predict posts text to /predict/{category} and returns the label.
func (c *Client) Predict(ctx context.Context, category, text string) (string, error) {
	var resp PredictResponse
	path := "/predict/" + url.PathEscape(category)
	if err := c.doRequest(ctx, http.MethodPost, path, PredictRequest{Text: text}, &resp); err != nil {
		c.logger.Error("Classifier request failed",
			zap.String("category", category),
			zap.Error(err),
		)
		return "", err
	}

	label := strings.TrimSpace(resp.Label)
	if label == "" {
		return "", fmt.Errorf("classifier %s returned an empty label", category)
	}
	return label, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewAPIError(
			fmt.Sprintf("classifier returned status %d", resp.StatusCode),
			resp.StatusCode,
			map[string]any{
				"path": path,
				"body": util.Preview(string(respBody), 200),
			},
		)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// HTTPClassifier is a LocalClassifier backed by the sidecar.
type HTTPClassifier struct {
	client   *Client
	category string
}

func (h *HTTPClassifier) Category() string {
	return h.category
}

func (h *HTTPClassifier) Predict(ctx context.Context, text string) (string, error) {
	return h.client.Predict(ctx, h.category, text)
}
