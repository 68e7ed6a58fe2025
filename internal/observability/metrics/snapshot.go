package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const reserveLatencyName = "salon_booking_reserve_latency_seconds"

// LatencySnapshot summarizes a latency histogram for the admin dashboard.
type LatencySnapshot struct {
	Total int64   `json:"total"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// ReserveLatency reads the reservation latency histogram from gatherer.
// Missing or empty histograms yield a zero snapshot.
func ReserveLatency(gatherer prometheus.Gatherer) LatencySnapshot {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	families, err := gatherer.Gather()
	if err != nil {
		return LatencySnapshot{}
	}
	// Gather sorts families by name.
	idx := sort.Search(len(families), func(i int) bool {
		return families[i].GetName() >= reserveLatencyName
	})
	if idx == len(families) || families[idx].GetName() != reserveLatencyName {
		return LatencySnapshot{}
	}

	hist, total := mergeHistograms(families[idx].GetMetric())
	if total == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Total: int64(total),
		P50Ms: hist.quantile(0.50, total) * 1000,
		P95Ms: hist.quantile(0.95, total) * 1000,
	}
}

type bucket struct {
	upper float64
	cum   float64
}

// cumulativeBuckets is a histogram sorted by upper bound.
type cumulativeBuckets []bucket

// mergeHistograms sums every labelled series into one histogram.
func mergeHistograms(series []*dto.Metric) (cumulativeBuckets, uint64) {
	var total uint64
	sums := make(map[float64]float64)
	for _, m := range series {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		total += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			sums[b.GetUpperBound()] += float64(b.GetCumulativeCount())
		}
	}
	out := make(cumulativeBuckets, 0, len(sums))
	for upper, cum := range sums {
		out = append(out, bucket{upper: upper, cum: cum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].upper < out[j].upper })
	return out, total
}

// quantile interpolates linearly inside the bucket holding the q-th sample.
// Samples past the last finite bound answer with that bound.
func (bs cumulativeBuckets) quantile(q float64, total uint64) float64 {
	if len(bs) == 0 || total == 0 || q <= 0 {
		return 0
	}
	target := q * float64(total)
	i := sort.Search(len(bs), func(i int) bool { return bs[i].cum >= target })

	var lower, below float64
	if i > 0 {
		lower, below = bs[i-1].upper, bs[i-1].cum
	}
	if i == len(bs) || math.IsInf(bs[i].upper, 1) {
		return lower
	}
	width := bs[i].cum - below
	if width <= 0 {
		return bs[i].upper
	}
	return lower + (bs[i].upper-lower)*(target-below)/width
}
