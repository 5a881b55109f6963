package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rohmanhakim/image-cache/internal/metadata"
	"github.com/rohmanhakim/image-cache/pkg/failure"
)

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Classify responses

Fetch Semantics

- Any 2xx response yields the raw body bytes
- Non-2xx responses become a FetchError carrying the status code
- Redirects follow the client's default policy
- The timeout bounds the whole request, body read included
- No retries: retry policy belongs to the caller

The fetcher never inspects content; it only returns bytes and metadata.
*/

// DefaultTimeout bounds a single fetch when the caller does not
// configure one.
const DefaultTimeout = 10 * time.Second

type ImageFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
}

func NewImageFetcher(
	metadataSink metadata.MetadataSink,
	timeout time.Duration,
	userAgent string,
) ImageFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return ImageFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{Timeout: timeout},
		userAgent:    userAgent,
	}
}

// NewImageFetcherWithClient creates an ImageFetcher over a caller-owned
// http.Client. Used by tests and by callers that need transport control.
func NewImageFetcherWithClient(
	metadataSink metadata.MetadataSink,
	httpClient *http.Client,
	userAgent string,
) ImageFetcher {
	return ImageFetcher{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

func (h *ImageFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "ImageFetcher.Fetch"
	startTime := time.Now()

	result, err := h.performFetch(ctx, fetchParam.fetchUrl)

	duration := time.Since(startTime)

	var statusCode int
	var sizeByte uint64
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			statusCode = fetchErr.StatusCode
		}
	} else {
		statusCode = result.Code()
		sizeByte = result.SizeByte()
	}

	if h.metadataSink != nil {
		h.metadataSink.RecordFetch(
			fetchParam.fetchUrl,
			statusCode,
			duration,
			sizeByte,
		)
	}

	if err != nil {
		h.recordFetchError(callerMethod, fetchParam.fetchUrl, err)
		return FetchResult{}, err
	}

	return result, nil
}

func (h *ImageFetcher) recordFetchError(callerMethod string, fetchUrl string, err failure.ClassifiedError) {
	if h.metadataSink == nil {
		return
	}
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		h.metadataSink.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToMetadataCause(fetchError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, fetchUrl),
				metadata.NewAttr(metadata.AttrHTTPStatus, strconv.Itoa(fetchError.StatusCode)),
			},
		)
	}
}

func (h *ImageFetcher) performFetch(ctx context.Context, fetchUrl string) (FetchResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl, nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		cause := ErrCauseNetworkFailure
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
			cause = ErrCauseTimeout
		}
		// Network/transport errors are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     cause,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 5xx and 429 may resolve on their own; other client errors won't
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return FetchResult{}, &FetchError{
			Message:    fmt.Sprintf("http status: %d", resp.StatusCode),
			Retryable:  retryable,
			Cause:      ErrCauseHTTPStatus,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}

	result := FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: uint64(len(body)),
			contentType:         resp.Header.Get("Content-Type"),
		},
	}

	return result, nil
}
