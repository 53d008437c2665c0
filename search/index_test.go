package search_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/podcastr-backend/models"
	"github.com/vnkhanh/podcastr-backend/search"
	"github.com/vnkhanh/podcastr-backend/testutil"
)

func TestDBIndexMatchesCaseInsensitively(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	base := time.Now()
	older := &models.Podcast{OwnerID: uuid.New(), Title: "Learning Go", Language: "English", CreatedAt: base.Add(-time.Hour)}
	newer := &models.Podcast{OwnerID: uuid.New(), Title: "Go concurrency", Language: "English", CreatedAt: base}
	hindi := &models.Podcast{OwnerID: uuid.New(), Title: "Go in Hindi", Language: "Hindi", CreatedAt: base}
	other := &models.Podcast{OwnerID: uuid.New(), Title: "Cooking", Language: "English", CreatedAt: base}
	for _, p := range []*models.Podcast{older, newer, hindi, other} {
		require.NoError(t, db.Create(p).Error)
	}

	idx := search.NewDBIndex(db)

	ids, err := idx.Match(ctx, search.FieldTitle, "GO", "", 10)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	ids, err = idx.Match(ctx, search.FieldTitle, "go", "English", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{newer.ID, older.ID}, ids)

	ids, err = idx.Match(ctx, search.FieldTitle, "go", "", 1)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func fakeElasticsearch(t *testing.T, hits []string, lastBody *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			body, _ := io.ReadAll(r.Body)
			*lastBody = string(body)
			list := []map[string]string{}
			for _, id := range hits {
				list = append(list, map[string]string{"_id": id})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"hits": map[string]interface{}{"hits": list},
			})
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
		default:
			_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
		}
	}))
}

func TestElasticIndexMatchBuildsFilteredQuery(t *testing.T) {
	want := uuid.New()
	var body string
	srv := fakeElasticsearch(t, []string{want.String(), "not-a-uuid"}, &body)
	defer srv.Close()

	idx, err := search.NewElasticIndex(srv.URL)
	require.NoError(t, err)

	ids, err := idx.Match(context.Background(), search.FieldAuthor, "Jane Doe", "English", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{want}, ids)

	assert.Contains(t, body, `"author_name"`)
	assert.Contains(t, body, `"Jane Doe"`)
	assert.Contains(t, body, `"language":"English"`)
	assert.Contains(t, body, `"size":10`)
}

func TestElasticIndexRemoveIgnoresMissingDocument(t *testing.T) {
	var body string
	srv := fakeElasticsearch(t, nil, &body)
	defer srv.Close()

	idx, err := search.NewElasticIndex(srv.URL)
	require.NoError(t, err)

	assert.NoError(t, idx.Remove(context.Background(), uuid.New()))
}
