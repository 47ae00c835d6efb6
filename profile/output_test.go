package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumologic-library/query-profiler/models"
)

type pagedFetcher struct {
	pages   map[int]models.RecordsResponse
	offsets []int
}

func (p *pagedFetcher) SearchJobRecords(ctx context.Context, jobID string, limit, offset int) (models.RecordsResponse, error) {
	p.offsets = append(p.offsets, offset)
	return p.pages[offset], nil
}

func TestAssembleOutputNoRecords(t *testing.T) {
	output, err := AssembleOutput(context.Background(), &pagedFetcher{}, "job-1", 0, ",")
	require.NoError(t, err)
	assert.Equal(t, "NORECORDS", output)
}

func TestAssembleOutputMasksSeparator(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[int]models.RecordsResponse{
		0: {
			Fields: []models.Field{{Name: "_sourcecategory"}, {Name: "message"}},
			Records: []models.Record{
				{Map: map[string]string{"_sourcecategory": "prod/web", "message": "a,b,c"}},
			},
		},
	}}

	output, err := AssembleOutput(context.Background(), fetcher, "job-1", 1, ",")
	require.NoError(t, err)
	assert.Equal(t, "_sourcecategory,message\nprod/web,a|b|c", output)
}

func TestAssembleOutputPagesRecords(t *testing.T) {
	fields := []models.Field{{Name: "_count"}}
	fetcher := &pagedFetcher{pages: map[int]models.RecordsResponse{
		0: {
			Fields:  fields,
			Records: []models.Record{{Map: map[string]string{"_count": "1"}}},
		},
		recordLimit: {
			Fields:  fields,
			Records: []models.Record{{Map: map[string]string{"_count": "2"}}},
		},
	}}

	output, err := AssembleOutput(context.Background(), fetcher, "job-1", recordLimit+1, ",")
	require.NoError(t, err)
	assert.Equal(t, []int{0, recordLimit}, fetcher.offsets)
	assert.Equal(t, "_count\n1\n2", output)
}

func TestAssembleOutputTabSeparated(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[int]models.RecordsResponse{
		0: {
			Fields: []models.Field{{Name: "a"}, {Name: "b"}},
			Records: []models.Record{
				{Map: map[string]string{"a": "x", "b": "y"}},
			},
		},
	}}

	output, err := AssembleOutput(context.Background(), fetcher, "job-1", 1, "\t")
	require.NoError(t, err)
	assert.Equal(t, "a\tb\nx\ty", output)
}
