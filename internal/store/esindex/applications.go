// Package esindex keeps a guardian-searchable copy of applications and
// serves it as a reconciliation source.
package esindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/identity"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
)

// maxHits bounds a single guardian search.
const maxHits = 100

// Mapping is the index definition used by EnsureIndex.
const Mapping = `{
	"mappings": {
		"properties": {
			"id":             {"type": "keyword"},
			"trackingNumber": {"type": "keyword"},
			"applicantName":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"vertical":       {"type": "keyword"},
			"status":         {"type": "keyword"},
			"guardianKeys":   {"type": "keyword"},
			"createdAt":      {"type": "date"}
		}
	}
}`

// document is the indexed form: the application plus its normalized
// guardian contacts.
type document struct {
	models.Application
	GuardianKeys []string `json:"guardianKeys"`
}

func toDocument(app *models.Application) document {
	doc := document{Application: *app.Clone()}
	for _, m := range app.GuardianMobiles() {
		if key := identity.Normalize(m); key != "" {
			doc.GuardianKeys = append(doc.GuardianKeys, key)
		}
	}
	return doc
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type ApplicationIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewApplicationIndex(client *elasticsearch.Client, index string) *ApplicationIndex {
	return &ApplicationIndex{client: client, index: index}
}

var _ reconcile.ApplicationSource = (*ApplicationIndex)(nil)

func (x *ApplicationIndex) ApplicationsByGuardianMobile(ctx context.Context, key string) ([]models.Application, error) {
	query := map[string]interface{}{
		"size":  maxHits,
		"query": map[string]interface{}{"term": map[string]interface{}{"guardianKeys": key}},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": "asc"},
			map[string]interface{}{"id": "asc"},
		},
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(query); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  &body,
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewUpstreamUnavailableError("elasticsearch", fmt.Errorf("search failed: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("elasticsearch", fmt.Errorf("decode search response: %w", err))
	}

	apps := make([]models.Application, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		apps = append(apps, hit.Source.Application)
	}
	return apps, nil
}

// Put indexes the current state of an application under its id.
func (x *ApplicationIndex) Put(ctx context.Context, app *models.Application) error {
	data, err := json.Marshal(toDocument(app))
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: app.ID,
		Body:       bytes.NewReader(data),
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("index application %s: %w", app.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index application %s: %s", app.ID, res.Status())
	}
	return nil
}

// Indexer keeps the search copy in step with committed transitions.
type Indexer struct {
	index *ApplicationIndex
}

func NewIndexer(index *ApplicationIndex) *Indexer {
	return &Indexer{index: index}
}

var _ lifecycle.Hook = (*Indexer)(nil)

func (i *Indexer) Name() string { return "index" }

func (i *Indexer) AfterCommit(ctx context.Context, evt lifecycle.Event) error {
	if evt.Application == nil || strings.TrimSpace(evt.Application.ID) == "" {
		return nil
	}
	return i.index.Put(ctx, evt.Application)
}
