// Package classify asks the classification service which candidate paths
// are publishable documentation sources.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pserrors "git.home.luguber.info/inful/pagesync/internal/errors"
)

// Result is the classification verdict for one set of candidate paths.
type Result struct {
	// SourceFiles are the candidates judged publishable, in request order.
	SourceFiles []string `json:"source_files"`
	// Languages maps detected language names to file counts, informational.
	Languages map[string]int `json:"languages,omitempty"`
}

// Classifier decides which candidate paths are publishable sources. An
// error from Classify is fatal for the run: publishing without a verdict
// would guess at what belongs on the publish branch.
type Classifier interface {
	Classify(ctx context.Context, repoName string, candidates []string) (Result, error)
}

type request struct {
	Repository string   `json:"repository"`
	Paths      []string `json:"paths"`
}

// HTTPClassifier talks to the classification service over HTTP.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier for the service at url.
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Classify implements Classifier. Every failure path returns a fatal
// classify error so the engine aborts before touching the publish branch.
func (c *HTTPClassifier) Classify(ctx context.Context, repoName string, candidates []string) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, nil
	}

	payload, err := json.Marshal(request{Repository: repoName, Paths: candidates})
	if err != nil {
		return Result{}, fatal("encode classification request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fatal("build classification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fatal("classification service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, pserrors.New(pserrors.CategoryClassify, pserrors.SeverityFatal,
			fmt.Sprintf("classification service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fatal("decode classification response", err)
	}
	return result, nil
}

func fatal(msg string, cause error) error {
	return pserrors.Wrap(cause, pserrors.CategoryClassify, pserrors.SeverityFatal, msg)
}
