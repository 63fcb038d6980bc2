package metainfo

import "errors"

// ErrNoChange reports that a tracker edit matched nothing.
var ErrNoChange = errors.New("metainfo: no change made")

// Announce returns the primary tracker URL: the first URL of the first
// tier, or "" when no tracker is set.
func (m *Metainfo) Announce() string {
	for _, tier := range m.tiers {
		for _, u := range tier {
			return u
		}
	}
	return ""
}

// AnnounceList returns a copy of the tracker tiers.
func (m *Metainfo) AnnounceList() [][]string {
	out := make([][]string, len(m.tiers))
	for i, tier := range m.tiers {
		out[i] = append([]string(nil), tier...)
	}
	return out
}

// Trackers returns every tracker URL in tier order, deduplicated.
func (m *Metainfo) Trackers() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tier := range m.tiers {
		for _, u := range tier {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	return out
}

// SetTrackers replaces all tiers. Each URL becomes its own tier, in
// order, with duplicates dropped. Trackers live outside info, so no
// rehash happens.
func (m *Metainfo) SetTrackers(urls []string) {
	m.tiers = nil
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		m.tiers = append(m.tiers, []string{u})
	}
}

// AddTrackers adds the URLs not yet present anywhere as one new tier,
// at the top when top is true, otherwise at the bottom.
func (m *Metainfo) AddTrackers(urls []string, top bool) {
	existing := make(map[string]struct{})
	for _, u := range m.Trackers() {
		existing[u] = struct{}{}
	}
	var tier []string
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := existing[u]; ok {
			continue
		}
		existing[u] = struct{}{}
		tier = append(tier, u)
	}
	if len(tier) == 0 {
		return
	}
	if top {
		m.tiers = append([][]string{tier}, m.tiers...)
	} else {
		m.tiers = append(m.tiers, tier)
	}
}

// RemoveTracker drops every occurrence of url. Tiers left empty are
// removed. Returns ErrNoChange when the URL was not present.
func (m *Metainfo) RemoveTracker(url string) error {
	if url == "" {
		return ErrNoChange
	}
	changed := false
	var tiers [][]string
	for _, tier := range m.tiers {
		var kept []string
		for _, u := range tier {
			if u == url {
				changed = true
				continue
			}
			kept = append(kept, u)
		}
		if len(kept) > 0 {
			tiers = append(tiers, kept)
		}
	}
	if !changed {
		return ErrNoChange
	}
	m.tiers = tiers
	return nil
}

func (m *Metainfo) trackerCount() int {
	n := 0
	for _, tier := range m.tiers {
		n += len(tier)
	}
	return n
}
