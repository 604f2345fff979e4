package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veobatch/internal/infra"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultVideoModel = "veo-2.0-generate-001"
	DefaultTextModel  = "gemini-2.5-flash"
)

// ErrMissingAPIKey is returned when a call is attempted without a key.
var ErrMissingAPIKey = errors.New("genai: api key is required")

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	VideoModel string
	TextModel  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client is a thin facade over the Generative Language REST API covering the
// long-running Veo video operations and plain text generation.
type Client struct {
	apiKey     string
	baseURL    string
	videoModel string
	textModel  string
	httpClient *http.Client
	logger     *infra.Logger
}

// VideoRequest represents the information required to start a video operation.
type VideoRequest struct {
	Prompt      string
	AspectRatio string
	RequestID   string
}

// TextRequest asks the text model for a completion under a system instruction.
type TextRequest struct {
	SystemInstruction string
	Prompt            string
}

// Operation is the state of a long-running video generation.
type Operation struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *OperationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

// OperationError is the error payload of a finished operation.
type OperationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *OperationError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("operation failed (%d): %s", e.Code, e.Message)
	}
	return "operation failed: " + e.Message
}

type operationResponse struct {
	GenerateVideoResponse struct {
		GeneratedSamples []struct {
			Video struct {
				URI string `json:"uri"`
			} `json:"video"`
		} `json:"generatedSamples"`
		RAIMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
	} `json:"generateVideoResponse"`
}

// VideoURI returns the download link of the first generated sample, if any.
func (o Operation) VideoURI() string {
	if o.Response == nil {
		return ""
	}
	for _, sample := range o.Response.GenerateVideoResponse.GeneratedSamples {
		if uri := strings.TrimSpace(sample.Video.URI); uri != "" {
			return uri
		}
	}
	return ""
}

// FilteredReasons reports why the service withheld the output, if it did.
func (o Operation) FilteredReasons() []string {
	if o.Response == nil {
		return nil
	}
	return o.Response.GenerateVideoResponse.RAIMediaFilteredReasons
}

type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

type predictParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerateContentRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = DefaultVideoModel
	}
	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = DefaultTextModel
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		videoModel: videoModel,
		textModel:  textModel,
		httpClient: client,
		logger:     logger,
	}, nil
}

// WithAPIKey returns a copy of the client that authenticates with key. The
// receiver is left untouched so one configured client can serve many callers.
func (c *Client) WithAPIKey(key string) *Client {
	clone := *c
	clone.apiKey = strings.TrimSpace(key)
	return &clone
}

// VideoModel returns the configured Veo model identifier.
func (c *Client) VideoModel() string {
	return c.videoModel
}

// TextModel returns the configured text model identifier.
func (c *Client) TextModel() string {
	return c.textModel
}

// GenerateVideos starts a long-running video generation and returns the
// pending operation.
func (c *Client) GenerateVideos(ctx context.Context, req VideoRequest) (Operation, error) {
	if c.apiKey == "" {
		return Operation{}, ErrMissingAPIKey
	}
	payload := predictRequest{
		Instances: []predictInstance{{Prompt: strings.TrimSpace(req.Prompt)}},
		Parameters: predictParameters{
			AspectRatio: strings.TrimSpace(req.AspectRatio),
			SampleCount: 1,
		},
	}
	var op Operation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(c.videoModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return Operation{}, err
	}
	if op.Name == "" {
		return Operation{}, errors.New("genai: operation name missing from response")
	}
	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.videoModel).
		Str("operation", op.Name).
		Msg("genai: video operation started")
	return op, nil
}

// GetOperation refreshes the state of a long-running operation.
func (c *Client) GetOperation(ctx context.Context, name string) (Operation, error) {
	if c.apiKey == "" {
		return Operation{}, ErrMissingAPIKey
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return Operation{}, errors.New("genai: operation name is required")
	}
	var op Operation
	if err := c.invoke(ctx, http.MethodGet, "/"+name, nil, &op); err != nil {
		return Operation{}, err
	}
	return op, nil
}

// GenerateText runs a single-turn text completion and returns the
// concatenated text of the first candidate.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
	}
	if instruction := strings.TrimSpace(req.SystemInstruction); instruction != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: instruction}}}
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.textModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return "", err
	}
	for _, candidate := range response.Candidates {
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			b.WriteString(part.Text)
		}
		if b.Len() > 0 {
			return b.String(), nil
		}
	}
	return "", errors.New("genai: no text content returned")
}

// Download fetches a generated file. Relative URIs are resolved against the
// base URL and the API key is appended as the service requires.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	target := strings.TrimSpace(uri)
	if target == "" {
		return nil, "", errors.New("genai: download uri is required")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}
	if c.apiKey != "" {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}
