package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumologic-library/query-profiler/models"
)

func testCreds() Credentials {
	return Credentials{AccessID: "suAbc", AccessKey: "secret"}
}

func TestEndpointFor(t *testing.T) {
	assert.Equal(t, "https://api.sumologic.com/api", EndpointFor("us1"))
	assert.Equal(t, "https://api.sumologic.com/api", EndpointFor("prod"))
	assert.Equal(t, "https://api.us2.sumologic.com/api", EndpointFor("us2"))
	assert.Equal(t, "https://api.eu.sumologic.com/api", EndpointFor("eu"))
}

func TestNewRejectsTrailingSlash(t *testing.T) {
	_, err := New("https://api.sumologic.com/api/", testCreds(), 0)
	assert.Error(t, err)
}

func TestSearchJobLifecycle(t *testing.T) {
	statusCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		id, key, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "suAbc", id)
		assert.Equal(t, "secret", key)

		var req models.SearchJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "error | count", req.Query)
		assert.Equal(t, "1700000000000", req.From)
		assert.Equal(t, "1700003600000", req.To)
		assert.Equal(t, "UTC", req.TimeZone)
		assert.Equal(t, "false", req.ByReceiptTime)

		json.NewEncoder(w).Encode(models.SearchJob{ID: "12345"})
	})
	mux.HandleFunc("GET /v1/search/jobs/12345", func(w http.ResponseWriter, r *http.Request) {
		statusCalls++
		status := models.SearchJobStatus{State: models.StateGathering, MessageCount: 10, RecordCount: 1}
		if statusCalls >= 3 {
			status = models.SearchJobStatus{State: models.StateDone, MessageCount: 42, RecordCount: 2}
		}
		json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("GET /v1/search/jobs/12345/records", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10000", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		json.NewEncoder(w).Encode(models.RecordsResponse{
			Fields: []models.Field{{Name: "_sourcecategory"}, {Name: "_count"}},
			Records: []models.Record{
				{Map: map[string]string{"_sourcecategory": "prod/web", "_count": "7"}},
				{Map: map[string]string{"_sourcecategory": "prod/db", "_count": "3"}},
			},
		})
	})
	mux.HandleFunc("DELETE /v1/search/jobs/12345", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	sumo, err := New(server.URL, testCreds(), 0)
	require.NoError(t, err)

	ctx := context.Background()
	tr := models.TimeRange{FromMillis: 1700000000000, ToMillis: 1700003600000, TimeZone: "UTC"}

	job, err := sumo.StartSearchJob(ctx, "error | count", tr)
	require.NoError(t, err)
	assert.Equal(t, "12345", job.ID)

	tally, err := sumo.WaitForCompletion(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateDone, tally.State)
	assert.Equal(t, 42, tally.Messages)
	assert.Equal(t, 2, tally.Records)
	assert.Equal(t, 3, tally.Polls)

	records, err := sumo.SearchJobRecords(ctx, job.ID, 10000, 0)
	require.NoError(t, err)
	require.Len(t, records.Records, 2)
	assert.Equal(t, []string{"_sourcecategory", "_count"}, records.FieldNames())
	assert.Equal(t, "7", records.Records[0].Map["_count"])

	require.NoError(t, sumo.DeleteSearchJob(ctx, job.ID))
}

func TestStartSearchJobSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"parse error at line 1"}`))
	}))
	defer server.Close()

	sumo, err := New(server.URL, testCreds(), 0)
	require.NoError(t, err)

	_, err = sumo.StartSearchJob(context.Background(), "bogus |", models.TimeRange{TimeZone: "UTC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestStartSearchJobRejectsEmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	sumo, err := New(server.URL, testCreds(), 0)
	require.NoError(t, err)

	_, err = sumo.StartSearchJob(context.Background(), "error | count", models.TimeRange{TimeZone: "UTC"})
	assert.Error(t, err)
}
