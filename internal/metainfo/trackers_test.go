package metainfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerEditing(t *testing.T) {
	var tests = []struct {
		name   string
		setup  func(m *Metainfo)
		assert func(t *testing.T, m *Metainfo)
	}{
		{
			name: "set replaces all tiers",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://old.example/announce"})
				m.SetTrackers([]string{"http://a.example/announce", "http://b.example/announce"})
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, "http://a.example/announce", m.Announce())
				assert.Equal(t, [][]string{
					{"http://a.example/announce"},
					{"http://b.example/announce"},
				}, m.AnnounceList())
			},
		},
		{
			name: "set drops duplicates and empties",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce", "", "http://a.example/announce"})
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, []string{"http://a.example/announce"}, m.Trackers())
			},
		},
		{
			name: "add on top becomes the new announce",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce"})
				m.AddTrackers([]string{"http://b.example/announce"}, true)
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, "http://b.example/announce", m.Announce())
				assert.Equal(t, []string{"http://b.example/announce", "http://a.example/announce"}, m.Trackers())
			},
		},
		{
			name: "add at bottom keeps the announce",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce"})
				m.AddTrackers([]string{"http://b.example/announce"}, false)
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, "http://a.example/announce", m.Announce())
				assert.Equal(t, []string{"http://a.example/announce", "http://b.example/announce"}, m.Trackers())
			},
		},
		{
			name: "add dedups across existing tiers",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce"})
				m.AddTrackers([]string{"http://a.example/announce"}, true)
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, []string{"http://a.example/announce"}, m.Trackers())
				assert.Len(t, m.AnnounceList(), 1)
			},
		},
		{
			name: "remove clears matching announce and empty tier",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce", "http://b.example/announce"})
				require.Nil(t, m.RemoveTracker("http://a.example/announce"))
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, "http://b.example/announce", m.Announce())
				assert.Equal(t, [][]string{{"http://b.example/announce"}}, m.AnnounceList())
			},
		},
		{
			name: "remove last tracker leaves no announce",
			setup: func(m *Metainfo) {
				m.SetTrackers([]string{"http://a.example/announce"})
				require.Nil(t, m.RemoveTracker("http://a.example/announce"))
			},
			assert: func(t *testing.T, m *Metainfo) {
				assert.Equal(t, "", m.Announce())
				assert.Empty(t, m.Trackers())
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			tt.setup(m)
			tt.assert(t, m)
		})
	}
}

func TestRemoveTrackerNoChange(t *testing.T) {
	m := New()
	m.SetTrackers([]string{"http://a.example/announce"})
	assert.ErrorIs(t, m.RemoveTracker("http://missing.example/announce"), ErrNoChange)
	assert.ErrorIs(t, m.RemoveTracker(""), ErrNoChange)
}
