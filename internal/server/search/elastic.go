package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// servicioMapping is applied when the index is created.
const servicioMapping = `{
  "mappings": {
    "properties": {
      "id":          {"type": "long"},
      "name":        {"type": "text", "fields": {"keyword": {"type": "keyword", "ignore_above": 256}}},
      "description": {"type": "text"},
      "price":       {"type": "double"},
      "icon_key":    {"type": "keyword"},
      "status":      {"type": "integer"}
    }
  }
}`

// ErrMissingID is returned when a servicio without ID is written to the index.
var ErrMissingID = errors.New("servicio has no id")

// Options tune an ElasticIndex.
type Options struct {
	// MaxResults is the size of a search request.
	MaxResults int
	// Refresh is passed as the refresh parameter of index and delete calls.
	Refresh string
}

// ElasticIndex is an Index backed by one Elasticsearch index.
type ElasticIndex struct {
	client *elasticsearch.Client
	name   string
	opts   Options
}

// NewClient builds an Elasticsearch client for the given nodes.
func NewClient(addresses []string, username, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

// NewElasticIndex binds an index name to a client.
func NewElasticIndex(client *elasticsearch.Client, name string, opts Options) *ElasticIndex {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 10000
	}
	return &ElasticIndex{client: client, name: name, opts: opts}
}

// Name returns the index name.
func (i *ElasticIndex) Name() string {
	return i.name
}

// EnsureIndex creates the index with the servicio mapping unless it exists.
func (i *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.name, err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index %s: unexpected status %s", i.name, res.Status())
	}

	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(servicioMapping))),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %w", i.name, responseError(res))
	}
	return nil
}

// Recreate drops the index (if present) and creates it empty.
func (i *ElasticIndex) Recreate(ctx context.Context) error {
	res, err := i.client.Indices.Delete([]string{i.name},
		i.client.Indices.Delete.WithContext(ctx),
		i.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("delete index %s: %w", i.name, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index %s: %w", i.name, responseError(res))
	}
	return i.EnsureIndex(ctx)
}

// Save indexes the servicio under its ID, replacing any previous document.
func (i *ElasticIndex) Save(ctx context.Context, servicio *models.Servicio) error {
	if !servicio.HasID() {
		return ErrMissingID
	}
	body, err := json.Marshal(servicio)
	if err != nil {
		return fmt.Errorf("encode servicio: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(strconv.FormatInt(*servicio.ID, 10)),
	}
	if i.opts.Refresh != "" {
		opts = append(opts, i.client.Index.WithRefresh(i.opts.Refresh))
	}

	res, err := i.client.Index(i.name, bytes.NewReader(body), opts...)
	if err != nil {
		return fmt.Errorf("index servicio %d: %w", *servicio.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index servicio %d: %w", *servicio.ID, responseError(res))
	}
	return nil
}

// DeleteByID removes the document; a missing document is not an error.
func (i *ElasticIndex) DeleteByID(ctx context.Context, id int64) error {
	opts := []func(*esapi.DeleteRequest){
		i.client.Delete.WithContext(ctx),
	}
	if i.opts.Refresh != "" {
		opts = append(opts, i.client.Delete.WithRefresh(i.opts.Refresh))
	}

	res, err := i.client.Delete(i.name, strconv.FormatInt(id, 10), opts...)
	if err != nil {
		return fmt.Errorf("delete servicio %d from index: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete servicio %d from index: %w", id, responseError(res))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Servicio `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs query as an Elasticsearch query_string query and returns every
// hit up to MaxResults, in Elasticsearch's relevance order.
func (i *ElasticIndex) Search(ctx context.Context, query string) ([]models.Servicio, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{"query": query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
		i.client.Search.WithSize(i.opts.MaxResults),
	)
	if err != nil {
		return nil, fmt.Errorf("search servicios: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search servicios: %w", responseError(res))
	}

	var decoded searchResponse
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := make([]models.Servicio, 0, len(decoded.Hits.Hits))
	for _, hit := range decoded.Hits.Hits {
		result = append(result, hit.Source)
	}
	return result, nil
}

// Ping reports whether the cluster answers.
func (i *ElasticIndex) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

func responseError(res *esapi.Response) error {
	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	b, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(b, &e); err == nil && e.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", res.Status(), e.Error.Type, e.Error.Reason)
	}
	return fmt.Errorf("%s", res.Status())
}
