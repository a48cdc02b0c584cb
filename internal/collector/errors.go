package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind 抓取失败的分类
type ErrorKind string

const (
	ErrTimeout    ErrorKind = "timeout"
	ErrHTTPStatus ErrorKind = "http_status"
	ErrTransport  ErrorKind = "transport"
)

// FetchError 抓取失败，均可恢复：上层会回退到缓存
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	URL        string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Kind == ErrHTTPStatus {
		return fmt.Sprintf("fetch %s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	}
	return fmt.Sprintf("fetch %s: %v for %s", e.Kind, e.Cause, e.URL)
}

func (e *FetchError) Unwrap() error { return e.Cause }

func statusError(code int, url string) *FetchError {
	return &FetchError{Kind: ErrHTTPStatus, StatusCode: code, URL: url, Cause: fmt.Errorf("HTTP %d", code)}
}

// classifyError 把底层错误归为 timeout / transport
func classifyError(err error, url string) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: ErrTimeout, URL: url, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: ErrTimeout, URL: url, Cause: err}
	}
	return &FetchError{Kind: ErrTransport, URL: url, Cause: err}
}

// IsTimeout 判断任意错误是否为抓取超时
func IsTimeout(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == ErrTimeout
}
