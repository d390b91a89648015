package cmd_test

import (
	"testing"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileCommand(t *testing.T) {
	wb := setupEnv(t)
	saveWorkbook(t, wb, seriesRecords())

	out, _, err := executeCommand(t, "", "reconcile", "--force=false", "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Renumbered 1 seasons and 1 episodes.")

	rs := loadWorkbook(t, wb)
	assert.True(t, rs.Reconciled)
	assert.Equal(t, 3, rs.Seasons[1].Number)
	assert.Equal(t, model.Int(3), rs.Episodes[1].SeasonNumber)

	// A second run must not renumber again.
	out, _, err = executeCommand(t, "", "reconcile", "--force=false", "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "already reconciled")
}

func TestReconcileCommand_DryRun(t *testing.T) {
	wb := setupEnv(t)
	saveWorkbook(t, wb, seriesRecords())

	out, _, err := executeCommand(t, "", "reconcile", "--force=false", "--dry-run=true")
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: workbook not modified.")

	rs := loadWorkbook(t, wb)
	assert.False(t, rs.Reconciled)
	assert.Equal(t, 2, rs.Seasons[1].Number)
}

func TestReconcileCommand_Force(t *testing.T) {
	wb := setupEnv(t)
	rs := seriesRecords()
	rs.Reconciled = true
	saveWorkbook(t, wb, rs)

	out, _, err := executeCommand(t, "", "reconcile", "--force=true", "--dry-run=false")
	require.NoError(t, err)
	assert.NotContains(t, out, "already reconciled")

	got := loadWorkbook(t, wb)
	assert.Equal(t, 3, got.Seasons[1].Number)
	assert.Equal(t, model.Int(3), got.Episodes[1].SeasonNumber)
}

func TestReconcileCommand_UnresolvedEpisodes(t *testing.T) {
	wb := setupEnv(t)
	rs := seriesRecords()
	rs.Episodes = append(rs.Episodes, model.EpisodeRecord{SeasonNumber: model.Int(9), EpisodeNumber: 1, Title: "孤兒"})
	saveWorkbook(t, wb, rs)

	out, errOut, err := executeCommand(t, "", "reconcile", "--force=false", "--dry-run=false")
	require.NoError(t, err)
	assert.Contains(t, out, "1 episodes have no matching season")
	assert.Contains(t, errOut, "孤兒")

	got := loadWorkbook(t, wb)
	require.Len(t, got.Episodes, 3)
	assert.False(t, got.Episodes[2].SeasonNumber.Valid)
}
