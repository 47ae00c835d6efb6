package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumologic-library/query-profiler/db"
	"github.com/sumologic-library/query-profiler/models"
)

func seedHistory(t *testing.T) string {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "sumoquery.db")

	store, err := db.InitDB(dbFile)
	require.NoError(t, err)
	defer store.Close()

	runs := []models.Run{
		{Target: "us2_a", QuerySrc: "inline", Query: "error | count", JobID: "job-1", State: models.StateDone, Records: 3, Polls: 2, Elapsed: 4 * time.Second},
		{Target: "eu_b", QuerySrc: "inline", Query: "error | count", JobID: "job-2", State: models.StateDone, Records: 1, Polls: 9, Elapsed: 40 * time.Second},
		{Target: "us2_a", QuerySrc: "inline", Query: "error | count", JobID: "job-3", State: models.StateCancelled, Records: 0, Polls: 1, Elapsed: time.Second},
	}
	for _, run := range runs {
		_, err := db.SaveRun(store, run)
		require.NoError(t, err)
	}

	return dbFile
}

func TestRunListsNewestFirst(t *testing.T) {
	dbFile := seedHistory(t)

	runs, err := Run(&Config{DBFile: dbFile, Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "job-3", runs[0].JobID)
}

func TestRunFiltersByTarget(t *testing.T) {
	dbFile := seedHistory(t)

	runs, err := Run(&Config{DBFile: dbFile, Target: "eu_b", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "job-2", runs[0].JobID)
}

func TestRunSlowestFirst(t *testing.T) {
	dbFile := seedHistory(t)

	runs, err := Run(&Config{DBFile: dbFile, Slowest: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "job-2", runs[0].JobID)
	assert.Equal(t, "job-1", runs[1].JobID)
}

func TestSummarize(t *testing.T) {
	dbFile := seedHistory(t)

	summaries, err := Summarize(&Config{DBFile: dbFile})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "eu_b", summaries[0].Target)
	assert.Equal(t, 2, summaries[1].Runs)
}
