package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogzz2023/jn3/internal/assoc"
	"github.com/yogzz2023/jn3/internal/pipeline"
	"github.com/yogzz2023/jn3/internal/sensor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	// Reopening the same file must be a no-op, not a failure.
	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSaveAndLoadResult(t *testing.T) {
	s := openTestStore(t)

	reports := []sensor.Report{
		{X: 0, Y: 0, Z: 0, Time: 0},
		{X: 0, Y: 10, Z: 0, Time: 10},
		{X: 900, Y: 900, Z: 0, Time: 5000},
	}
	res, err := pipeline.New(nil).Run(reports)
	require.NoError(t, err)

	sessionID, err := s.SaveResult("unit-test.csv", res)
	require.NoError(t, err)
	require.Greater(t, sessionID, int64(0))

	sess, err := s.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "unit-test.csv", sess.Source)
	assert.Equal(t, 3, sess.ReportCount)
	assert.Equal(t, len(res.Tracks), sess.TrackCount)

	tracks, err := s.GetTracks(sessionID)
	require.NoError(t, err)
	require.Len(t, tracks, len(res.Tracks))
	assert.Equal(t, res.Tracks[0].ID, tracks[0].TrackID)

	assocs, err := s.GetAssociations(sessionID)
	require.NoError(t, err)
	require.Len(t, assocs, 3)
	for i, a := range assocs {
		assert.Equal(t, res.Associations[i].Report, a.ReportIdx)
		assert.Equal(t, res.Associations[i].Track, a.TrackIdx)
		assert.InDelta(t, res.Associations[i].Probability, a.Probability, 1e-12)
	}
}

func TestSaveEmptyResult(t *testing.T) {
	s := openTestStore(t)

	res, err := pipeline.New(nil).Run(nil)
	require.NoError(t, err)

	sessionID, err := s.SaveResult("empty.csv", res)
	require.NoError(t, err)

	sess, err := s.GetSession(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.ReportCount)
	assert.Equal(t, 0, sess.TrackCount)

	assocs, err := s.GetAssociations(sessionID)
	require.NoError(t, err)
	assert.Empty(t, assocs)
}

func TestUnassignedAssociationRoundTrips(t *testing.T) {
	s := openTestStore(t)

	res := &pipeline.Result{
		Reports:      []sensor.Report{{X: 1, Y: 2, Z: 3, Time: 4}},
		Associations: []assoc.Association{{Report: 0, Track: assoc.Unassigned, Probability: 0}},
	}
	sessionID, err := s.SaveResult("manual", res)
	require.NoError(t, err)

	assocs, err := s.GetAssociations(sessionID)
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, assoc.Unassigned, assocs[0].TrackIdx)
}
