package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnkhanh/podcastr-backend/logger"
	"github.com/vnkhanh/podcastr-backend/models"
)

const IndexPodcasts = "podcasts"

// ElasticIndex keeps a podcasts index in Elasticsearch.
type ElasticIndex struct {
	es    *elasticsearch.Client
	index string
}

type podcastDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AuthorName  string    `json:"author_name"`
	Language    string    `json:"language"`
	VoiceType   string    `json:"voice_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewElasticIndex connects to url and verifies the cluster answers.
func NewElasticIndex(url string) (*ElasticIndex, error) {
	if url == "" {
		url = "http://localhost:9200"
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()

	return &ElasticIndex{es: es, index: IndexPodcasts}, nil
}

// EnsureIndex creates the podcasts index with its mapping when missing.
func (i *ElasticIndex) EnsureIndex(ctx context.Context) error {
	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	text := map[string]interface{}{"type": "text", "analyzer": "standard"}
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":          map[string]interface{}{"type": "keyword"},
				"title":       text,
				"description": text,
				"author_name": text,
				"language":    map[string]interface{}{"type": "keyword"},
				"voice_type":  map[string]interface{}{"type": "keyword"},
				"created_at":  map[string]interface{}{"type": "date"},
			},
		},
	}
	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithBody(bytes.NewReader(body)),
		i.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, res.String())
	}
	logger.Log.Info("Created search index", zap.String("index", i.index))
	return nil
}

func (i *ElasticIndex) Upsert(ctx context.Context, p *models.Podcast) error {
	body, err := json.Marshal(podcastDocument{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		AuthorName:  p.AuthorName,
		Language:    p.Language,
		VoiceType:   p.VoiceType,
		CreatedAt:   p.CreatedAt,
	})
	if err != nil {
		return err
	}

	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithDocumentID(p.ID.String()),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index podcast: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index podcast %s: %s", p.ID, res.String())
	}
	return nil
}

func (i *ElasticIndex) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := i.es.Delete(i.index, id.String(), i.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete podcast from index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete podcast %s from index: %s", id, res.String())
	}
	return nil
}

func (i *ElasticIndex) Match(ctx context.Context, field Field, query, language string, limit int) ([]uuid.UUID, error) {
	body, err := json.Marshal(matchQuery(field, query, language, limit))
	if err != nil {
		return nil, err
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", i.index, res.String())
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			logger.Log.Warn("Skipping search hit with invalid id", zap.String("id", hit.ID))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func matchQuery(field Field, query, language string, limit int) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					string(field): map[string]interface{}{"query": query},
				},
			},
		},
	}
	if language != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"language": language}},
		}
	}
	return map[string]interface{}{
		"size":    limit,
		"_source": false,
		"query":   map[string]interface{}{"bool": boolQuery},
	}
}
