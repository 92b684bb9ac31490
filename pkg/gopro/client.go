package gopro

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"goprodl/pkg/logger"
)

// Error types for GoPro API operations
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a GoPro API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("gopro %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsFatal reports whether an error should abort the whole run rather than
// skip a single item. Auth and listing-level failures are fatal; everything
// else is left to the caller to count and continue.
func IsFatal(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeAuth
	}
	return false
}

// Client represents a cookie-authenticated GoPro API client
type Client struct {
	httpClient     *http.Client
	downloadClient *http.Client
	headers        map[string]string
	baseURL        string
	logger         logger.Logger
}

// NewClient creates a new GoPro API client. The cookie header carries the
// externally supplied session; no login flow is performed. timeout applies
// to API calls and, until SetDownloadTimeout is called, to downloads too.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		downloadClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept-Language": "en-US",
		},
		baseURL: baseURL,
		logger:  log,
	}
}

// SetDownloadTimeout sets a separate timeout for media downloads, which run
// far longer than API calls
func (c *Client) SetDownloadTimeout(timeout time.Duration) {
	c.downloadClient.Timeout = timeout
}

// BaseURL returns the API base URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// doRequest performs an API request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	return c.do(c.httpClient, req)
}

// do performs an HTTP request with the configured headers using the given
// underlying client
func (c *Client) do(httpClient *http.Client, req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(url string, target interface{}) error {
	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error, check the cookies file", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication failed, check the cookies file",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &Error{
			Type:    ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 400 {
			c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return &Error{
				Type:    ErrorTypeUnknown,
				Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
				Code:    resp.StatusCode,
			}
		}
		return nil
	}
}

// Search fetches one page of media matching the search options
func (c *Client) Search(opts SearchOptions, page int) (*SearchResponse, error) {
	url := SearchURL(c.baseURL, opts, page)

	c.logger.DebugWithFields("searching media", map[string]interface{}{
		"page":     page,
		"per_page": opts.PerPage,
		"range":    opts.DateRange,
	})

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}
	req.Header.Set("Accept", SearchAccept)

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse search response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	c.logger.DebugWithFields("search page fetched", map[string]interface{}{
		"page":        page,
		"items":       len(response.Embedded.Media),
		"total_pages": response.Pages.TotalPages,
	})

	return &response, nil
}

// DownloadSource streams a media item's source file into w using a fixed-size
// copy buffer. Returns the number of bytes written.
func (c *Client) DownloadSource(mediaID string, w io.Writer, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 8192
	}

	url := SourceURL(c.baseURL, mediaID)
	c.logger.DebugWithFields("downloading media", map[string]interface{}{
		"media_id": mediaID,
		"url":      url,
	})

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return 0, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.do(c.downloadClient, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return 0, err
	}

	written, err := io.CopyBuffer(w, resp.Body, make([]byte, chunkSize))
	if err != nil {
		c.logger.ErrorWithFields("failed to read media data", map[string]interface{}{
			"media_id": mediaID,
			"error":    err.Error(),
		})
		return written, &Error{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to download media: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"media_id": mediaID,
		"size":     written,
	})

	return written, nil
}
