package widgets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(hour, minute int) time.Time {
	return time.Date(2026, 8, 29, hour, minute, 0, 0, time.UTC)
}

func Test_unifyAxes(t *testing.T) {
	series := map[string][]SeriesPoint{
		"indoor": {
			{Time: ts(10, 0), Value: 20},
			{Time: ts(12, 0), Value: 22},
		},
		"outdoor": {
			{Time: ts(11, 0), Value: 15},
		},
	}

	unified := unifyAxes(series)

	// indoor has no 11:00 sample, the 10:00 value is carried forward
	require.Len(t, unified["indoor"], 3)
	assert.Equal(t, 20.0, unified["indoor"][1].Value)
	assert.Equal(t, ts(11, 0), unified["indoor"][1].Time)
	assert.Equal(t, 22.0, unified["indoor"][2].Value)

	// outdoor starts at 11:00, the earlier tick is omitted, the later one
	// is forward-filled
	require.Len(t, unified["outdoor"], 2)
	assert.Equal(t, ts(11, 0), unified["outdoor"][0].Time)
	assert.Equal(t, 15.0, unified["outdoor"][1].Value)
}

func Test_bucketize_Average(t *testing.T) {
	points := []SeriesPoint{
		{Time: ts(10, 5), Value: 10},
		{Time: ts(10, 35), Value: 20},
		{Time: ts(11, 10), Value: 30},
	}

	out := bucketize(points, GroupHour, AggAverage)

	require.Len(t, out, 2)
	assert.Equal(t, ts(10, 0), out[0].Time)
	assert.Equal(t, 15.0, out[0].Value)
	assert.Equal(t, 30.0, out[1].Value)
}

// Delta is bucket-last minus previous-bucket-last. The first bucket has no
// predecessor and uses its own first sample, so a single-sample first bucket
// is zero.
func Test_bucketize_Delta(t *testing.T) {
	points := []SeriesPoint{
		{Time: ts(10, 5), Value: 100},
		{Time: ts(10, 45), Value: 104},
		{Time: ts(11, 30), Value: 110},
		{Time: ts(12, 15), Value: 110},
	}

	out := bucketize(points, GroupHour, AggDelta)

	require.Len(t, out, 3)
	assert.Equal(t, 4.0, out[0].Value)
	assert.Equal(t, 6.0, out[1].Value)
	assert.Equal(t, 0.0, out[2].Value)
}

func Test_bucketize_Delta_SinglePointFirstBucket(t *testing.T) {
	points := []SeriesPoint{
		{Time: ts(10, 30), Value: 100},
		{Time: ts(11, 30), Value: 107},
	}

	out := bucketize(points, GroupHour, AggDelta)

	require.Len(t, out, 2)
	assert.Equal(t, 0.0, out[0].Value)
	assert.Equal(t, 7.0, out[1].Value)
}

func Test_bucketize_Reducers(t *testing.T) {
	points := []SeriesPoint{
		{Time: ts(10, 5), Value: 3},
		{Time: ts(10, 15), Value: 9},
		{Time: ts(10, 25), Value: 6},
	}

	tests := []struct {
		agg  Aggregation
		want float64
	}{
		{agg: AggMax, want: 9},
		{agg: AggMin, want: 3},
		{agg: AggSum, want: 18},
		{agg: AggLast, want: 6},
		{agg: AggAverage, want: 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.agg), func(t *testing.T) {
			out := bucketize(points, GroupHour, tt.agg)

			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Value)
		})
	}
}

func Test_bucketize_Empty(t *testing.T) {
	assert.Nil(t, bucketize(nil, GroupHour, AggAverage))
}

func Test_bucketize_UnsortedInput(t *testing.T) {
	points := []SeriesPoint{
		{Time: ts(11, 0), Value: 2},
		{Time: ts(10, 0), Value: 1},
	}

	out := bucketize(points, GroupHour, AggLast)

	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Value)
	assert.Equal(t, 2.0, out[1].Value)
}

func Test_truncateTo(t *testing.T) {
	sample := time.Date(2026, 8, 29, 13, 37, 42, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 8, 29, 13, 37, 0, 0, time.UTC), truncateTo(sample, GroupMinute))
	assert.Equal(t, time.Date(2026, 8, 29, 13, 0, 0, 0, time.UTC), truncateTo(sample, GroupHour))
	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), truncateTo(sample, GroupDay))
}
