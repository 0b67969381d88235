// Package httptask implements a task adapter that performs a single HTTP
// request, grounded on the http_request/http_client module pair: a shared
// *http.Client resource used to issue the request, and the request's
// status code and body handed back as the vertex's result payload.
package httptask

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/specialistvlad/dagsched/internal/task"
)

// NewClient builds the shared *http.Client a campaign's httptask vertices
// use, pooling idle connections the same way the connection-pooled client
// resource does.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Task issues one HTTP request and reports its status code and body as
// the vertex's result.
type Task struct {
	Client *http.Client
	Method string
	URL    string
	Header http.Header
}

// Start implements task.Adapter.
func (t *Task) Start(_ task.ResultReader, report task.Reporter) {
	client := t.Client
	if client == nil {
		report.OnTaskFailure(fmt.Errorf("httptask: no http client configured"))
		return
	}

	method := t.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(context.Background(), method, t.URL, nil)
	if err != nil {
		report.OnTaskFailure(fmt.Errorf("httptask: building request: %w", err))
		return
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		report.OnTaskFailure(fmt.Errorf("httptask: request failed: %w", err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		report.OnTaskFailure(fmt.Errorf("httptask: reading response body: %w", err))
		return
	}

	report.OnTaskSuccess(cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
	}))
}
