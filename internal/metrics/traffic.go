package metrics

import (
	"sync"
	"time"
)

const (
	trafficWindow  = 5 * time.Minute
	trafficBuckets = 30
	timeLayout     = "2006-01-02 15:04:05"
)

// jakartaZone is the fixed display timezone for bucket labels. This is a
// presentation choice only; everything is stored in UTC.
var jakartaZone = time.FixedZone("Asia/Jakarta", 7*3600)

// Series is the bucketed recent-activity rollup consumed by the dashboard
// traffic graph.
type Series struct {
	Counts []int    `json:"counts"`
	Labels []string `json:"labels"`

	WindowStartUTC     string `json:"window_start_utc"`
	WindowEndUTC       string `json:"window_end_utc"`
	WindowStartJakarta string `json:"window_start_jakarta"`
	WindowEndJakarta   string `json:"window_end_jakarta"`
}

// Traffic records message timestamps into a bounded ring and rolls them up
// into a 30-bucket series over the trailing five minutes.
type Traffic struct {
	mu       sync.Mutex
	capacity int
	points   []int64
}

func NewTraffic(capacity int) *Traffic {
	if capacity < 1 {
		capacity = 1
	}
	return &Traffic{capacity: capacity}
}

// Record appends a message timestamp, evicting the oldest point when full.
func (t *Traffic) Record(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.points) >= t.capacity {
		drop := len(t.points) - t.capacity + 1
		t.points = t.points[:copy(t.points, t.points[drop:])]
	}
	t.points = append(t.points, ts.UnixNano())
}

// Collect partitions the trailing window into equal buckets as of now.
// Points older than the window (plus a minute of slack) are pruned.
func (t *Traffic) Collect(now time.Time) Series {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := now.Add(-trafficWindow)
	prune := start.Add(-time.Minute).UnixNano()

	idx := 0
	for idx < len(t.points) && t.points[idx] < prune {
		idx++
	}
	if idx > 0 {
		t.points = t.points[:copy(t.points, t.points[idx:])]
	}

	series := Series{
		Counts:             []int{},
		Labels:             []string{},
		WindowStartUTC:     start.UTC().Format(timeLayout),
		WindowEndUTC:       now.UTC().Format(timeLayout),
		WindowStartJakarta: start.In(jakartaZone).Format(timeLayout),
		WindowEndJakarta:   now.In(jakartaZone).Format(timeLayout),
	}

	if len(t.points) == 0 {
		return series
	}

	step := trafficWindow / trafficBuckets
	counts := make([]int, trafficBuckets)
	startNs := start.UnixNano()
	for _, p := range t.points {
		if p < startNs {
			continue
		}
		bucket := int(time.Duration(p-startNs) / step)
		if bucket >= 0 && bucket < trafficBuckets {
			counts[bucket]++
		}
	}

	labels := make([]string, trafficBuckets)
	for i := 0; i < trafficBuckets; i++ {
		labels[i] = start.Add(time.Duration(i) * step).In(jakartaZone).Format("15:04")
	}

	series.Counts = counts
	series.Labels = labels
	return series
}
