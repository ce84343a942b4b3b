package widgets

import (
	"sort"
	"time"

	"golang.org/x/exp/slices"
)

// Grouping is the chart bucket width.
type Grouping string

const (
	GroupMinute Grouping = "minute"
	GroupHour   Grouping = "hour"
	GroupDay    Grouping = "day"
)

// Aggregation reduces the samples of one bucket to a single value.
type Aggregation string

const (
	AggAverage Aggregation = "average"
	AggMax     Aggregation = "max"
	AggMin     Aggregation = "min"
	AggSum     Aggregation = "sum"
	AggLast    Aggregation = "last"
	AggDelta   Aggregation = "delta"
)

// SeriesPoint is one sample on a chart series.
type SeriesPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

func truncateTo(t time.Time, grouping Grouping) time.Time {
	switch grouping {
	case GroupMinute:
		return t.Truncate(time.Minute)
	case GroupDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	default: // hour
		return t.Truncate(time.Hour)
	}
}

// unifyAxes merges all series onto one shared time axis, carrying the last
// known value of each series forward over its gaps. Samples before a series'
// first known value are left out.
func unifyAxes(series map[string][]SeriesPoint) map[string][]SeriesPoint {
	seen := make(map[time.Time]struct{})
	axis := make([]time.Time, 0)

	for _, points := range series {
		for _, point := range points {
			if _, ok := seen[point.Time]; !ok {
				seen[point.Time] = struct{}{}
				axis = append(axis, point.Time)
			}
		}
	}

	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })

	unified := make(map[string][]SeriesPoint, len(series))

	for label, points := range series {
		sorted := slices.Clone(points)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

		filled := make([]SeriesPoint, 0, len(axis))
		next := 0
		haveValue := false

		var last float64

		for _, tick := range axis {
			for next < len(sorted) && !sorted[next].Time.After(tick) {
				last = sorted[next].Value
				haveValue = true
				next++
			}

			if haveValue {
				filled = append(filled, SeriesPoint{Time: tick, Value: last})
			}
		}

		unified[label] = filled
	}

	return unified
}

// bucketize groups time-ordered samples by the grouping and reduces each
// bucket with the aggregation. Delta is bucket-last minus previous-bucket-
// last; the first bucket uses its own first sample as baseline, so a
// single-sample first bucket yields zero.
func bucketize(points []SeriesPoint, grouping Grouping, agg Aggregation) []SeriesPoint {
	if len(points) == 0 {
		return nil
	}

	sorted := slices.Clone(points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	type bucket struct {
		start  time.Time
		values []float64
	}

	buckets := make([]bucket, 0)

	for _, point := range sorted {
		start := truncateTo(point.Time, grouping)

		if len(buckets) == 0 || !buckets[len(buckets)-1].start.Equal(start) {
			buckets = append(buckets, bucket{start: start})
		}

		last := &buckets[len(buckets)-1]
		last.values = append(last.values, point.Value)
	}

	out := make([]SeriesPoint, 0, len(buckets))

	for i, b := range buckets {
		var value float64

		switch agg {
		case AggMax:
			value = b.values[0]
			for _, v := range b.values[1:] {
				if v > value {
					value = v
				}
			}
		case AggMin:
			value = b.values[0]
			for _, v := range b.values[1:] {
				if v < value {
					value = v
				}
			}
		case AggSum:
			for _, v := range b.values {
				value += v
			}
		case AggLast:
			value = b.values[len(b.values)-1]
		case AggDelta:
			last := b.values[len(b.values)-1]
			if i == 0 {
				value = last - b.values[0]
			} else {
				prev := buckets[i-1].values
				value = last - prev[len(prev)-1]
			}
		default: // average
			var sum float64
			for _, v := range b.values {
				sum += v
			}
			value = sum / float64(len(b.values))
		}

		out = append(out, SeriesPoint{Time: b.start, Value: value})
	}

	return out
}
