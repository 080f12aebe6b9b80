package indices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/GabrielNunesIT/log-indexer/internal/config"
	"github.com/GabrielNunesIT/log-indexer/internal/model"
)

// NewClient builds the Elasticsearch client shared by the bulk sink and
// the index manager.
func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}
	if cfg.CACertPath != "" {
		cert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("reading ca cert: %w", err)
		}
		esCfg.CACert = cert
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return client, nil
}

// Manager administers the month-bucket indices: template setup, listing
// and retention.
type Manager struct {
	client *elasticsearch.Client
	cfg    config.IndicesConfig
	logger *slog.Logger
}

// NewManager connects a Manager to the cluster.
func NewManager(esCfg config.ElasticsearchConfig, idxCfg config.IndicesConfig, logger *slog.Logger) (*Manager, error) {
	client, err := NewClient(esCfg)
	if err != nil {
		return nil, err
	}
	return NewManagerWithClient(client, idxCfg, logger), nil
}

// NewManagerWithClient wraps an existing client. Used by tests to inject
// a mocked transport.
func NewManagerWithClient(client *elasticsearch.Client, cfg config.IndicesConfig, logger *slog.Logger) *Manager {
	return &Manager{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "indices")),
	}
}

// TemplateName returns the index template owned by this prefix.
func (m *Manager) TemplateName() string {
	return sanitize(m.cfg.Prefix) + "-template"
}

// EnsureTemplate installs the index template unless it already exists.
// With force it overwrites unconditionally.
func (m *Manager) EnsureTemplate(ctx context.Context, force bool) error {
	name := m.TemplateName()

	if !force {
		res, err := m.client.Indices.ExistsIndexTemplate(name,
			m.client.Indices.ExistsIndexTemplate.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("checking index template: %w", err)
		}
		defer res.Body.Close()

		switch res.StatusCode {
		case http.StatusOK:
			m.logger.Debug("index template already present", slog.String("template", name))
			return nil
		case http.StatusNotFound:
			// fall through to create
		default:
			return fmt.Errorf("checking index template: %s", res.String())
		}
	}

	body := map[string]any{
		"index_patterns": []string{Pattern(m.cfg.Prefix)},
		"template": map[string]any{
			"settings": map[string]any{
				"number_of_shards":   m.cfg.Shards,
				"number_of_replicas": m.cfg.Replicas,
			},
			"mappings": map[string]any{
				"dynamic_templates": []map[string]any{
					{
						"strings_as_keywords": map[string]any{
							"match_mapping_type": "string",
							"mapping": map[string]any{
								"type": "text",
								"fields": map[string]any{
									"keyword": map[string]any{
										"type":         "keyword",
										"ignore_above": 256,
									},
								},
							},
						},
					},
				},
				"properties": map[string]any{
					model.FieldTimestamp: map[string]any{"type": "date"},
					model.FieldAccount:   map[string]any{"type": "keyword"},
					model.FieldLogGroup:  map[string]any{"type": "keyword"},
					model.FieldLogStream: map[string]any{"type": "keyword"},
					model.FieldPayload:   map[string]any{"type": "text"},
					"log_type":           map[string]any{"type": "keyword"},
					"aws_request_id":     map[string]any{"type": "keyword"},
				},
			},
		},
	}

	res, err := m.client.Indices.PutIndexTemplate(name, esutil.NewJSONReader(body),
		m.client.Indices.PutIndexTemplate.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("putting index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("putting index template: %s", res.String())
	}

	m.logger.Info("index template installed",
		slog.String("template", name),
		slog.String("pattern", Pattern(m.cfg.Prefix)))
	return nil
}

// List returns the indices matching the prefix pattern, sorted by name.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	res, err := m.client.Cat.Indices(
		m.client.Cat.Indices.WithContext(ctx),
		m.client.Cat.Indices.WithIndex(Pattern(m.cfg.Prefix)),
		m.client.Cat.Indices.WithFormat("json"),
		m.client.Cat.Indices.WithH("index"),
	)
	if err != nil {
		return nil, fmt.Errorf("listing indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("listing indices: %s", res.String())
	}

	var rows []struct {
		Index string `json:"index"`
	}
	if err := json.NewDecoder(res.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding cat indices response: %w", err)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.Index)
	}
	sort.Strings(names)
	return names, nil
}

// Stale filters names down to indices whose month bucket lies entirely
// outside the retention window as of the given time. Names that do not
// carry a parseable month suffix are never considered stale.
func (m *Manager) Stale(asOf time.Time, names []string) []string {
	cutoff := asOf.UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	prefix := sanitize(m.cfg.Prefix) + "-"

	var stale []string
	for _, name := range names {
		suffix, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		month, err := time.Parse("2006-01", suffix)
		if err != nil {
			continue
		}
		// The bucket is stale once even its last millisecond has aged out.
		if bucketEnd := month.AddDate(0, 1, 0); !bucketEnd.After(cutoff) {
			stale = append(stale, name)
		}
	}
	return stale
}

// Delete removes the given indices.
func (m *Manager) Delete(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	res, err := m.client.Indices.Delete(names,
		m.client.Indices.Delete.WithContext(ctx),
		m.client.Indices.Delete.WithIgnoreUnavailable(true))
	if err != nil {
		return fmt.Errorf("deleting indices: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("deleting indices: %s", res.String())
	}

	m.logger.Info("indices deleted", slog.Int("count", len(names)), slog.Any("names", names))
	return nil
}
