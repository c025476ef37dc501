package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jvsview/internal/models"
)

func epoch() time.Time { return time.UnixMilli(0).UTC() }

func TestRowsScenario(t *testing.T) {
	r := New()
	rows := r.Rows([]models.StreamSummary{
		{ID: "1", Title: "A", Description: "d", CreationDate: epoch(), DurationMs: 5000, IsLive: false, StreamType: "VOD"},
	})

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "1", row.ID)
	assert.Equal(t, "A", row.Title)
	assert.Equal(t, "d (Thu Jan 01 1970 / VOD)", row.Summary)
	assert.Equal(t, "a few seconds", row.Duration)
	assert.Equal(t, "No", row.Live)
	assert.Equal(t, "1", row.PlayID)
}

func TestRowsPreserveOrderAndIDs(t *testing.T) {
	in := []models.StreamSummary{
		{ID: "7", IsLive: true, DurationMs: 65000},
		{ID: "3"},
		{ID: "12"},
	}
	rows := New().Rows(in)
	require.Len(t, rows, len(in))
	for i, row := range rows {
		assert.Equal(t, in[i].ID, row.ID)
		assert.Equal(t, in[i].ID, row.PlayID)
	}
	assert.Equal(t, "Yes", rows[0].Live)
	assert.Equal(t, "a minute", rows[0].Duration)
}

func TestRowsEmpty(t *testing.T) {
	rows := New().Rows(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestRowsMissingDate(t *testing.T) {
	rows := New().Rows([]models.StreamSummary{{ID: "1", Description: "d", StreamType: "VOD"}})
	assert.Equal(t, "d (Invalid Date / VOD)", rows[0].Summary)
	assert.Empty(t, rows[0].Created)
}

func TestRowsLocationAndLocale(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	r := New(WithLocation(rome), WithLocale("it"))
	rows := r.Rows([]models.StreamSummary{
		{ID: "1", CreationDate: time.Date(2020, 3, 1, 23, 30, 0, 0, time.UTC), DurationMs: int64(2 * time.Hour / time.Millisecond), StreamType: "VOD"},
	})
	assert.Equal(t, " (Mon Mar 02 2020 / VOD)", rows[0].Summary)
	assert.Equal(t, "2 ore", rows[0].Duration)
}

func TestRowsCreatedTooltip(t *testing.T) {
	now := epoch().Add(3 * 24 * time.Hour)
	r := New(WithClock(func() time.Time { return now }))
	rows := r.Rows([]models.StreamSummary{{ID: "1", CreationDate: epoch()}})
	assert.Equal(t, "created 3 days ago", rows[0].Created)
}

func TestTableOneRowPerEntry(t *testing.T) {
	r := New()
	rows := r.Rows([]models.StreamSummary{
		{ID: "1", Title: "A", Description: "d", CreationDate: epoch(), DurationMs: 5000, StreamType: "VOD"},
		{ID: "2", Title: "B", IsLive: true},
	})

	var buf bytes.Buffer
	require.NoError(t, r.Table(&buf, rows))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "<tr"))
	assert.Contains(t, out, `class="btn btn-info btn-sm button-play" data-id="1"`)
	assert.Contains(t, out, `class="btn btn-info btn-sm button-play" data-id="2"`)
	assert.Contains(t, out, "<td>d (Thu Jan 01 1970 / VOD)</td>")
	assert.Contains(t, out, "<td>a few seconds</td>")
	assert.Less(t, strings.Index(out, `data-id="1"`), strings.Index(out, `data-id="2"`))
}

func TestTableEscapesUpstreamText(t *testing.T) {
	r := New()
	s, err := r.TableString(r.Rows([]models.StreamSummary{
		{ID: `1" onclick="x`, Title: "<script>alert(1)</script>"},
	}))
	require.NoError(t, err)
	assert.NotContains(t, s, "<script>")
	assert.Contains(t, s, "&lt;script&gt;")
	assert.NotContains(t, s, `data-id="1" onclick`)
}

func TestTableEmpty(t *testing.T) {
	s, err := New().TableString(nil)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(s))
}

func TestPage(t *testing.T) {
	r := New()
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, PageData{
		Title:           "JVS Streams",
		Rows:            r.Rows([]models.StreamSummary{{ID: "5", Title: "E"}}),
		RefreshInterval: 10 * time.Second,
	}))
	out := buf.String()
	assert.Contains(t, out, "<title>JVS Streams</title>")
	assert.Contains(t, out, `data-refresh-ms="10000"`)
	assert.Contains(t, out, `id="videoPlayer"`)
	assert.Contains(t, out, `data-id="5"`)
}
