package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSummaryDecodesJVSServerPayload(t *testing.T) {
	payload := `{
		"id": 3,
		"title": "Camera",
		"descr": "Front door",
		"liveTime": 120,
		"duration": "PT1H2M3.5S",
		"manifest": "http://jvs/streams/3/manifest.mpd",
		"creationDate": "2017-05-04T10:15:30Z",
		"streamType": "MPEG-DASH (H.264/AAC)",
		"isLive": true
	}`

	var s StreamSummary
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Equal(t, "3", s.ID)
	assert.Equal(t, "Camera", s.Title)
	assert.Equal(t, "Front door", s.Description)
	assert.Equal(t, time.Date(2017, 5, 4, 10, 15, 30, 0, time.UTC), s.CreationDate.UTC())
	assert.Equal(t, int64(3723500), s.DurationMs)
	assert.Equal(t, "MPEG-DASH (H.264/AAC)", s.StreamType)
	assert.True(t, s.IsLive)
	assert.Equal(t, int64(120), s.LiveTime)
	assert.Equal(t, "http://jvs/streams/3/manifest.mpd", s.Manifest)
}

func TestStreamSummaryDecodesMillis(t *testing.T) {
	var s StreamSummary
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","title":"A","descr":"d","creationDate":0,"duration":5000,"isLive":false,"streamType":"VOD"}`), &s))

	assert.Equal(t, "1", s.ID)
	assert.Equal(t, time.Unix(0, 0).UTC(), s.CreationDate)
	assert.Equal(t, int64(5000), s.DurationMs)
	assert.Equal(t, 5*time.Second, s.Duration())
	assert.False(t, s.IsLive)
}

func TestStreamSummaryClampsNegativeDuration(t *testing.T) {
	var s StreamSummary
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"duration":"PT-5S"}`), &s))
	assert.Equal(t, int64(0), s.DurationMs)
}

func TestStreamSummaryMissingDate(t *testing.T) {
	var s StreamSummary
	require.NoError(t, json.Unmarshal([]byte(`{"id":1}`), &s))
	assert.True(t, s.CreationDate.IsZero())

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"creationDate":""}`), &s))
	assert.True(t, s.CreationDate.IsZero())
}

func TestStreamSummaryNullDateIsEpoch(t *testing.T) {
	var s StreamSummary
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"creationDate":null}`), &s))
	assert.False(t, s.CreationDate.IsZero())
	assert.Equal(t, int64(0), s.CreationDate.UnixMilli())
}

func TestStreamSummaryRejectsGarbage(t *testing.T) {
	var s StreamSummary
	assert.Error(t, json.Unmarshal([]byte(`{"id":1,"duration":"forever"}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"id":1,"creationDate":"yesterday"}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"id":{}}`), &s))
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"PT0S", 0},
		{"PT5S", 5 * time.Second},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT0.25S", 250 * time.Millisecond},
		{"PT48H", 48 * time.Hour},
		{"P1D", 24 * time.Hour},
		{"P1W", 7 * 24 * time.Hour},
		{"P1DT12H", 36 * time.Hour},
		{"-PT1M", -time.Minute},
		{"pt1m30s", 90 * time.Second},
		{"PT1,5S", 1500 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseISODuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "P", "PT", "P1DT", "1H", "PTXS", "P1H"} {
		_, err := ParseISODuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestFlexString(t *testing.T) {
	tests := []struct {
		in   string
		want FlexString
	}{
		{`"abc"`, "abc"},
		{`42`, "42"},
		{`null`, ""},
	}
	for _, tt := range tests {
		var f FlexString
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
		assert.Equal(t, tt.want, f)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in   string
		want FlexInt
	}{
		{`7`, 7},
		{`"12"`, 12},
		{`""`, 0},
		{`"n/a"`, 0},
		{`null`, 0},
	}
	for _, tt := range tests {
		var f FlexInt
		require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
		assert.Equal(t, tt.want, f)
	}
}

func TestFlexTimeNumericString(t *testing.T) {
	var f FlexTime
	require.NoError(t, json.Unmarshal([]byte(`"86400000"`), &f))
	assert.Equal(t, time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC), time.Time(f))
}
