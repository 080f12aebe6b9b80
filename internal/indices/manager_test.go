package indices

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// esResponse fakes a cluster response. The product header is required,
// the client refuses to talk to anything without it.
func esResponse(status int, body string) *http.Response {
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestManager(t *testing.T, cfg config.IndicesConfig, rt roundTripFunc) *Manager {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://elasticsearch.test:9200"},
		Transport: rt,
	})
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManagerWithClient(client, cfg, logger)
}

func testIndicesConfig() config.IndicesConfig {
	return config.IndicesConfig{Prefix: "cw-logs", Shards: 2, Replicas: 1, RetentionDays: 380}
}

func TestEnsureTemplate_SkipsWhenPresent(t *testing.T) {
	var requests []*http.Request
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		requests = append(requests, r)
		return esResponse(http.StatusOK, ""), nil
	})

	err := m.EnsureTemplate(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodHead, requests[0].Method)
	assert.Equal(t, "/_index_template/cw-logs-template", requests[0].URL.Path)
}

func TestEnsureTemplate_CreatesWhenMissing(t *testing.T) {
	var methods []string
	var putBody string
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodHead {
			return esResponse(http.StatusNotFound, ""), nil
		}
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		putBody = string(data)
		return esResponse(http.StatusOK, `{"acknowledged":true}`), nil
	})

	err := m.EnsureTemplate(context.Background(), false)
	require.NoError(t, err)

	require.Equal(t, []string{http.MethodHead, http.MethodPut}, methods)
	assert.Contains(t, putBody, `"index_patterns":["cw-logs-*"]`)
	assert.Contains(t, putBody, `"number_of_shards":2`)
	assert.Contains(t, putBody, `"number_of_replicas":1`)
	assert.Contains(t, putBody, `"@timestamp":{"type":"date"}`)
}

func TestEnsureTemplate_ForceSkipsExistsCheck(t *testing.T) {
	var methods []string
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		return esResponse(http.StatusOK, `{"acknowledged":true}`), nil
	})

	err := m.EnsureTemplate(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, []string{http.MethodPut}, methods)
}

func TestList(t *testing.T) {
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "_cat/indices")
		assert.Contains(t, r.URL.Path, "cw-logs-*")
		return esResponse(http.StatusOK, `[{"index":"cw-logs-2021-01"},{"index":"cw-logs-2020-12"}]`), nil
	})

	names, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cw-logs-2020-12", "cw-logs-2021-01"}, names)
}

func TestList_ClusterError(t *testing.T) {
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		return esResponse(http.StatusInternalServerError, `{"error":"boom"}`), nil
	})

	_, err := m.List(context.Background())
	assert.Error(t, err)
}

// noTransport fails the test if the manager talks to the cluster.
func noTransport(t *testing.T) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request: %s %s", r.Method, r.URL)
		return nil, nil
	}
}

func TestStale(t *testing.T) {
	m := newTestManager(t, testIndicesConfig(), noTransport(t))

	names := []string{
		"cw-logs-2020-11",
		"cw-logs-2020-12",
		"cw-logs-2021-01",
		"cw-logs-2022-01",
		"cw-logs-not-a-month",
		"unrelated-2019-01",
	}

	// Cutoff is 2022-02-01 minus 380 days: 2021-01-17. The 2020-12
	// bucket ends 2021-01-01 and is stale, the 2021-01 bucket ends
	// 2021-02-01 and is not.
	asOf := time.Date(2022, 2, 1, 0, 0, 0, 0, time.UTC)
	stale := m.Stale(asOf, names)
	assert.Equal(t, []string{"cw-logs-2020-11", "cw-logs-2020-12"}, stale)
}

func TestStale_BucketEndOnCutoff(t *testing.T) {
	cfg := testIndicesConfig()
	cfg.RetentionDays = 31
	m := newTestManager(t, cfg, noTransport(t))

	// asOf 2021-02-01 minus 31 days lands exactly on the 2020-12
	// bucket end, which counts as aged out.
	asOf := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
	stale := m.Stale(asOf, []string{"cw-logs-2020-12", "cw-logs-2021-01"})
	assert.Equal(t, []string{"cw-logs-2020-12"}, stale)
}

func TestDelete(t *testing.T) {
	var paths []string
	m := newTestManager(t, testIndicesConfig(), func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		return esResponse(http.StatusOK, `{"acknowledged":true}`), nil
	})

	err := m.Delete(context.Background(), []string{"cw-logs-2020-11", "cw-logs-2020-12"})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "cw-logs-2020-11")
	assert.Contains(t, paths[0], "cw-logs-2020-12")
}

func TestDelete_NothingToDo(t *testing.T) {
	m := newTestManager(t, testIndicesConfig(), noTransport(t))
	require.NoError(t, m.Delete(context.Background(), nil))
}
