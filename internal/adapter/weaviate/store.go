// Package weaviate implements the vector store contract on a Weaviate
// instance. Chunks live in one class; the namespace is an indexed text
// property filtered on every read and write, so index auto-creation stays
// a single idempotent class create.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	wfault "github.com/weaviate/weaviate-go-client/v5/weaviate/fault"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"ragchat/backend/internal/fault"
	"ragchat/backend/internal/vectorstore"
)

type Store struct {
	client *weaviate.Client
	class  string
}

func NewStore(client *weaviate.Client, class string) *Store {
	return &Store{client: client, class: class}
}

func (s *Store) EnsureIndex(ctx context.Context, dimension int) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(s.class).Do(ctx)
	if err != nil {
		return classify(err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       s.class,
		Description: "An embedded document chunk",
		Vectorizer:  "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"string"}},
			{Name: "pageNumber", DataType: []string{"int"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "totalChunks", DataType: []string{"int"}},
			{Name: "namespace", DataType: []string{"string"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		// A concurrent caller may have won the create; that is success.
		var cerr *wfault.WeaviateClientError
		if errors.As(err, &cerr) && cerr.StatusCode == 422 {
			return nil
		}
		return classify(err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, namespace string, entries []vectorstore.Entry) (int, error) {
	objects := make([]*models.Object, 0, len(entries))
	for _, e := range entries {
		objects = append(objects, &models.Object{
			Class: s.class,
			ID:    strfmt.UUID(e.ID),
			Properties: map[string]interface{}{
				"text":        e.Meta.Text,
				"source":      e.Meta.Source,
				"pageNumber":  e.Meta.PageNumber,
				"chunkIndex":  e.Meta.ChunkIndex,
				"totalChunks": e.Meta.TotalChunks,
				"namespace":   namespace,
			},
			Vector: e.Vector,
		})
	}

	res, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, classify(err)
	}

	written := 0
	for _, obj := range res {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return written, fault.Transient(fmt.Errorf("batch object rejected: %s", obj.Result.Errors.Error[0].Message))
		}
		written++
	}
	return written, nil
}

func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectorstore.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	where := filters.Where().
		WithPath([]string{"namespace"}).
		WithOperator(filters.Equal).
		WithValueString(namespace)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "source"},
		{Name: "pageNumber"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(s.class).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Errors) > 0 {
		return nil, fault.Transient(fmt.Errorf("graphql error: %v", res.Errors[0].Message))
	}

	var matches []vectorstore.Match
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return matches, nil
	}
	rows, ok := data[s.class].([]interface{})
	if !ok {
		return matches, nil
	}

	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		var m vectorstore.Match
		if text, ok := props["text"].(string); ok {
			m.Text = text
		}
		if source, ok := props["source"].(string); ok {
			m.Source = source
		}
		if page, ok := props["pageNumber"].(float64); ok {
			m.PageNumber = int(page)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				m.ChunkID = id
			}
			// Weaviate reports certainty in [0,1]; convert back to raw
			// cosine similarity so every backend scores on the same scale.
			switch c := additional["certainty"].(type) {
			case float64:
				m.Score = float32(2*c - 1)
			case string:
				if f, err := strconv.ParseFloat(c, 64); err == nil {
					m.Score = float32(2*f - 1)
				}
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Store) Stats(ctx context.Context, namespace string) (vectorstore.Stats, error) {
	agg := s.client.GraphQL().Aggregate().
		WithClassName(s.class).
		WithGroupBy("namespace").
		WithFields(
			graphql.Field{Name: "groupedBy", Fields: []graphql.Field{{Name: "value"}}},
			graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}},
		)

	if namespace != "" {
		agg = agg.WithWhere(filters.Where().
			WithPath([]string{"namespace"}).
			WithOperator(filters.Equal).
			WithValueString(namespace))
	}

	res, err := agg.Do(ctx)
	if err != nil {
		return vectorstore.Stats{}, classify(err)
	}
	if len(res.Errors) > 0 {
		return vectorstore.Stats{}, fault.Transient(fmt.Errorf("graphql error: %v", res.Errors[0].Message))
	}

	stats := vectorstore.Stats{Namespaces: make(map[string]int)}
	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return stats, nil
	}
	groups, ok := data[s.class].([]interface{})
	if !ok {
		return stats, nil
	}

	for _, g := range groups {
		group, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		ns := ""
		if grouped, ok := group["groupedBy"].(map[string]interface{}); ok {
			if v, ok := grouped["value"].(string); ok {
				ns = v
			}
		}
		count := 0
		if meta, ok := group["meta"].(map[string]interface{}); ok {
			if c, ok := meta["count"].(float64); ok {
				count = int(c)
			}
		}
		stats.Namespaces[ns] = count
		stats.VectorCount += count
	}
	return stats, nil
}

func (s *Store) DeleteBySource(ctx context.Context, namespace, source string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.class).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"namespace"}).
					WithOperator(filters.Equal).
					WithValueString(namespace),
				filters.Where().
					WithPath([]string{"source"}).
					WithOperator(filters.Equal).
					WithValueString(source),
			})).
		Do(ctx)
	return classify(err)
}

// classify maps weaviate client errors onto the fault taxonomy.
// Connection failures and 5xx responses come back as generic client
// errors, so anything unrecognized is treated as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var cerr *wfault.WeaviateClientError
	if errors.As(err, &cerr) {
		switch {
		case cerr.StatusCode == 401 || cerr.StatusCode == 403:
			return fault.Auth("weaviate rejected credential: %v", err)
		case cerr.StatusCode == 404:
			return fault.NotFound("weaviate: %v", err)
		case cerr.StatusCode == 422:
			return err
		}
	}
	return fault.Transient(err)
}
