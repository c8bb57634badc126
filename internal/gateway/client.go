package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// Options controls how the gateway client is configured.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     infra.Logger
}

// Client is the thin outbound boundary to the remote video generation API.
// It never decrypts or stores the credential: every call receives the secret
// fresh from the orchestrator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     infra.Logger
}

// RefImage is an optional reference image attached to a submission.
type RefImage struct {
	MIME string
	Name string
	Data []byte
}

// SubmitRequest carries the generation parameters for a new remote job.
type SubmitRequest struct {
	Model           domain.ModelID
	Prompt          string
	Resolution      string
	DurationSeconds int
	RefImage        *RefImage
}

// StatusReport is the normalized poll response. Status carries the remote
// vocabulary verbatim; translation into the canonical state machine happens
// at the orchestrator boundary.
type StatusReport struct {
	RemoteID  string
	Status    string
	AssetRefs []string
	Error     string
}

// NewClient constructs a gateway client with sane defaults.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

// Submit creates a remote generation job and returns its remote identifier.
// A non-2xx response yields a *domain.RemoteRequestError carrying the status
// code so callers can tell client from server fault.
func (c *Client) Submit(ctx context.Context, credential string, req SubmitRequest) (string, error) {
	var httpReq *http.Request
	var err error
	if req.RefImage != nil {
		httpReq, err = c.newMultipartSubmit(ctx, req)
	} else {
		httpReq, err = c.newJSONSubmit(ctx, req)
	}
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gateway: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.RemoteRequestError{StatusCode: resp.StatusCode, Message: readAPIError(resp.Body)}
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("gateway: decode submit response: %w", err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("gateway: submit response missing job id")
	}
	c.logger.Debug().Str("remote_id", payload.ID).Msg("gateway: job submitted")
	return payload.ID, nil
}

func (c *Client) newJSONSubmit(ctx context.Context, req SubmitRequest) (*http.Request, error) {
	body, err := json.Marshal(map[string]any{
		"model":   req.Model,
		"prompt":  req.Prompt,
		"size":    req.Resolution,
		"seconds": strconv.Itoa(req.DurationSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: encode submit payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}

func (c *Client) newMultipartSubmit(ctx context.Context, req SubmitRequest) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":   string(req.Model),
		"prompt":  req.Prompt,
		"size":    req.Resolution,
		"seconds": strconv.Itoa(req.DurationSeconds),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("gateway: write multipart field: %w", err)
		}
	}

	name := req.RefImage.Name
	if name == "" {
		name = "input_reference.png"
	}
	part, err := writer.CreateFormFile("input_reference", name)
	if err != nil {
		return nil, fmt.Errorf("gateway: create multipart file: %w", err)
	}
	if _, err := part.Write(req.RefImage.Data); err != nil {
		return nil, fmt.Errorf("gateway: write multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gateway: finalize multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/videos", &buf)
	if err != nil {
		return nil, fmt.Errorf("gateway: build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return httpReq, nil
}

// FetchStatus retrieves the current remote status for a job. Failures here
// are transient from the orchestrator's point of view and never mark the job
// failed by themselves.
func (c *Client) FetchStatus(ctx context.Context, credential, remoteID string) (*StatusReport, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/"+remoteID, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway: build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.TransientPollError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.TransientPollError{
			Err: &domain.RemoteRequestError{StatusCode: resp.StatusCode, Message: readAPIError(resp.Body)},
		}
	}

	var payload struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Output []struct {
			URL string `json:"url"`
		} `json:"output"`
		Error         json.RawMessage `json:"error"`
		FailureReason string          `json:"failure_reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.TransientPollError{Err: fmt.Errorf("decode status response: %w", err)}
	}

	report := &StatusReport{
		RemoteID: payload.ID,
		Status:   payload.Status,
		Error:    extractErrorMessage(payload.Error, payload.FailureReason),
	}
	if report.RemoteID == "" {
		report.RemoteID = remoteID
	}
	for _, item := range payload.Output {
		if item.URL != "" {
			report.AssetRefs = append(report.AssetRefs, item.URL)
		}
	}
	return report, nil
}

// FetchAssetBytes downloads a result artifact. The ref is the opaque content
// endpoint reported in the status output; the response content type is
// preserved byte for byte for the caller.
func (c *Client) FetchAssetBytes(ctx context.Context, credential, ref string) ([]byte, string, error) {
	url := ref
	if strings.HasPrefix(ref, "/") {
		url = c.baseURL + ref
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("gateway: build download request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("gateway: download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &domain.RemoteRequestError{StatusCode: resp.StatusCode, Message: readAPIError(resp.Body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("gateway: read asset body: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "application/octet-stream"
	}
	c.logger.Debug().Int("bytes", len(data)).Str("mime", mime).Msg("gateway: asset downloaded")
	return data, mime, nil
}

// Validate checks a credential with a lightweight request before it is
// accepted into the vault.
func (c *Client) Validate(ctx context.Context, credential string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("gateway: build validate request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gateway: validate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.RemoteRequestError{StatusCode: resp.StatusCode, Message: readAPIError(resp.Body)}
	}
	return nil
}

// readAPIError pulls the most useful message out of an error response body.
func readAPIError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.Error.Code != "" {
			return payload.Error.Code
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

// extractErrorMessage mirrors the various shapes the remote reports failures
// in: a structured error object, a bare string, or a failure_reason field.
func extractErrorMessage(rawError json.RawMessage, failureReason string) string {
	if len(rawError) > 0 && string(rawError) != "null" {
		var structured struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if err := json.Unmarshal(rawError, &structured); err == nil {
			if structured.Message != "" {
				return structured.Message
			}
			if structured.Code != "" {
				return structured.Code
			}
		}
		var plain string
		if err := json.Unmarshal(rawError, &plain); err == nil && plain != "" {
			return plain
		}
		return string(rawError)
	}
	return failureReason
}
