package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/go-resty/resty/v2"
)

const (
	defaultJobQueueTimeout = 30 * time.Second
	batchJobsPath          = "/jobs/batch"
)

// JobQueue is the outbound scheduling port. Results are positionally aligned
// with the submitted payloads.
type JobQueue interface {
	SubmitBatch(ctx context.Context, payloads []domain.DispatchPayload) ([]JobResult, error)
}

// JobResult is the job-queue answer for one payload.
type JobResult struct {
	OK    bool
	JobID string
	Error string
}

type batchResponse struct {
	Success bool         `json:"success"`
	Data    []itemResult `json:"data"`
	Error   looseString  `json:"error"`
	Message looseString  `json:"message"`
}

type itemResult struct {
	OK    bool        `json:"ok"`
	Job   *jobRef     `json:"job"`
	Error looseString `json:"error"`
}

type jobRef struct {
	ID looseString `json:"id"`
}

// looseString accepts a JSON string, number or object. Non-string values keep
// their raw JSON text.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	*s = looseString(data)
	return nil
}

// JobQueueClient submits dispatch payloads to the external job queue.
type JobQueueClient struct {
	client   *resty.Client
	endpoint string
	token    string
}

func NewJobQueueClient(baseURL, token string, timeout time.Duration) (*JobQueueClient, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultJobQueueTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewJobQueueClientWithClient(baseURL, token, client)
}

func NewJobQueueClientWithClient(baseURL, token string, client *resty.Client) (*JobQueueClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("job queue url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid job queue url: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("job queue token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultJobQueueTimeout)
	}
	client.SetRetryCount(0)

	return &JobQueueClient{
		client:   client,
		endpoint: trimmed + batchJobsPath,
		token:    strings.TrimSpace(token),
	}, nil
}

// SubmitBatch posts one chunk. Any error means no per-item result is known and
// the whole chunk must be treated as failed.
func (c *JobQueueClient) SubmitBatch(ctx context.Context, payloads []domain.DispatchPayload) ([]JobResult, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("job queue client is not initialized")
	}
	if len(payloads) == 0 {
		return nil, nil
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.token).
		SetHeader("Content-Type", "application/json").
		SetBody(payloads).
		Post(c.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "job queue returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    body,
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	var decoded batchResponse
	if err := json.Unmarshal(response.Body(), &decoded); err != nil {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    "invalid job queue response: " + body,
			Cause:      err,
		}
	}
	if !decoded.Success && len(decoded.Data) == 0 {
		msg := string(decoded.Error)
		if msg == "" {
			msg = string(decoded.Message)
		}
		if msg == "" {
			msg = body
		}
		return nil, &ProviderError{StatusCode: statusCode, Message: msg}
	}

	results := make([]JobResult, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		result := JobResult{OK: item.OK, Error: string(item.Error)}
		if item.Job != nil {
			result.JobID = strings.TrimSpace(string(item.Job.ID))
		}
		if result.OK && result.JobID == "" {
			result.OK = false
			if result.Error == "" {
				result.Error = "job queue returned no job id"
			}
		}
		if !result.OK && result.Error == "" {
			result.Error = "job queue rejected the payload"
		}
		results = append(results, result)
	}

	return results, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}
