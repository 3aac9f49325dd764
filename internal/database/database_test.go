package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	require.NoError(t, Initialize(filepath.Join(t.TempDir(), "audit.db")))
	t.Cleanup(func() { Close() })
	d := GetDB()
	require.NotNil(t, d)
	return d
}

func TestRecordIncident(t *testing.T) {
	t.Run("rows land without the caller waiting on the write", func(t *testing.T) {
		d := openTestDB(t)
		for i := 0; i < 20; i++ {
			d.RecordIncident(100, uint64(i), "spam", "burst")
		}
		require.Eventually(t, func() bool {
			rows, err := d.GetRecentIncidents(100, 50)
			return err == nil && len(rows) == 20
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("close drains the queue", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.db")
		require.NoError(t, Initialize(path))
		d := GetDB()
		d.RecordIncident(7, 8, "raid", "six joins in 2s")
		require.NoError(t, Close())

		require.NoError(t, Initialize(path))
		defer Close()
		rows, err := GetDB().GetRecentIncidents(7, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "raid", rows[0].Kind)
		assert.Equal(t, "8", rows[0].UserID)
	})
}

func TestGetRecentIncidents(t *testing.T) {
	d := openTestDB(t)
	d.RecordIncident(1, 10, "spam", "first")
	d.RecordIncident(2, 20, "invite", "second")
	d.RecordIncident(1, 30, "mention_flood", "third")
	require.Eventually(t, func() bool {
		rows, err := d.GetRecentIncidents(0, 10)
		return err == nil && len(rows) == 3
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("newest first", func(t *testing.T) {
		rows, err := d.GetRecentIncidents(0, 10)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "mention_flood", rows[0].Kind)
		assert.Equal(t, "spam", rows[2].Kind)
	})

	t.Run("guild filter", func(t *testing.T) {
		rows, err := d.GetRecentIncidents(2, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "invite", rows[0].Kind)
	})

	t.Run("limit clamps to a sane default", func(t *testing.T) {
		rows, err := d.GetRecentIncidents(0, -5)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}
