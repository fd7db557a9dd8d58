package processing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/RenatoCabral2022/binaural-studio/internal/model"
)

// Multipart field names expected by the processing service.
const (
	FieldAudio          = "audio"
	FieldDimensionality = "dimensionality"
)

const (
	maxErrorBody     = 512
	maxResponseBytes = 256 << 20
)

// ErrMalformedResponse is returned when a 2xx response does not carry two
// base64 payloads.
var ErrMalformedResponse = errors.New("malformed processing response")

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("processing service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("processing service returned status %d: %s", e.StatusCode, e.Body)
}

// Request is one upload to the processing service.
type Request struct {
	FileName       string
	ContentType    string
	Audio          []byte
	Dimensionality int
}

// Client posts audio to the processing service.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the service at url. The default http.Client
// has no timeout; callers bound requests through ctx.
func NewClient(url string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Process uploads the audio and dimensionality as multipart/form-data and
// returns the decoded response once both payloads validate.
func (c *Client) Process(ctx context.Context, req Request) (*model.ProcessResponse, error) {
	logger := c.logger.With(
		zap.String("file", req.FileName),
		zap.Int("bytes", len(req.Audio)),
		zap.Int("dimensionality", req.Dimensionality),
	)
	start := time.Now()

	// Stream the body through a pipe so the upload is never buffered twice.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		err := writeForm(writer, req)
		pw.CloseWithError(err)
		errCh <- err
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	logger.Info("sending processing request")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pr.CloseWithError(io.ErrClosedPipe)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	out, err := decodeResponse(body)
	if err != nil {
		return nil, err
	}

	// The service may answer before reading the whole upload; the transport
	// then closes the pipe under the writer. The 2xx answer still stands.
	pr.CloseWithError(io.ErrClosedPipe)
	if writeErr := <-errCh; writeErr != nil && !errors.Is(writeErr, io.ErrClosedPipe) {
		return nil, fmt.Errorf("write request body: %w", writeErr)
	}

	logger.Info("processing request complete",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func writeForm(writer *multipart.Writer, req Request) error {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldAudio, escapeQuotes(req.FileName)))
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}

	if err := writer.WriteField(FieldDimensionality, strconv.Itoa(req.Dimensionality)); err != nil {
		return fmt.Errorf("write field %s: %w", FieldDimensionality, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

func decodeResponse(body []byte) (*model.ProcessResponse, error) {
	var out model.ProcessResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Original == "" || out.Processed == "" {
		return nil, fmt.Errorf("%w: missing original or processed payload", ErrMalformedResponse)
	}
	if _, err := base64.StdEncoding.DecodeString(out.Original); err != nil {
		return nil, fmt.Errorf("%w: original: %v", ErrMalformedResponse, err)
	}
	if _, err := base64.StdEncoding.DecodeString(out.Processed); err != nil {
		return nil, fmt.Errorf("%w: processed: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
