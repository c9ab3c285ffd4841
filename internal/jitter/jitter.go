// Package jitter measures how much stabilization calms boxes down and renders trajectories.
package jitter

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"text/tabwriter"

	"github.com/LdDl/bbox-stabilization/stabilization"
	"gonum.org/v1/gonum/stat"
)

// Observation is a raw box and its stabilized counterpart on a single frame
type Observation struct {
	Frame    int
	ObjectID uint32
	// Index of the object in stabilized frame
	Slot   int
	Raw    stabilization.Rectangle
	Stable stabilization.Rectangle
}

// TrackKey identifies a track. Objects with identifier are tracked by it,
// objects without one by their slot in stabilized frame.
type TrackKey struct {
	ObjectID uint32
	Slot     int
}

func (k TrackKey) String() string {
	if k.ObjectID != 0 {
		return fmt.Sprintf("id %d", k.ObjectID)
	}
	return fmt.Sprintf("slot %d", k.Slot)
}

func compareKeys(a, b TrackKey) int {
	if c := cmp.Compare(a.ObjectID, b.ObjectID); c != 0 {
		return c
	}
	return cmp.Compare(a.Slot, b.Slot)
}

// Key returns track the observation belongs to
func (o Observation) Key() TrackKey {
	if o.ObjectID != 0 {
		return TrackKey{ObjectID: o.ObjectID, Slot: -1}
	}
	return TrackKey{Slot: o.Slot}
}

// Stats are jitter statistics of a single track
type Stats struct {
	Track TrackKey
	// Number of frames the object was observed on
	Frames int
	// Standard deviation of frame to frame center displacement
	RawJitter    float64
	StableJitter float64
	// Standard deviation of frame to frame width change
	RawSizeJitter    float64
	StableSizeJitter float64
	// Mean distance between raw and stabilized centers
	MeanLag float64
}

// Reduction is the share of center jitter removed by stabilization
func (s Stats) Reduction() float64 {
	if s.RawJitter == 0 {
		return 0
	}
	return 1 - s.StableJitter/s.RawJitter
}

// GroupByTrack splits observations into tracks ordered by frame.
// Unidentified slots come first, then identifiers in ascending order.
func GroupByTrack(observations []Observation) ([]TrackKey, map[TrackKey][]Observation) {
	tracks := make(map[TrackKey][]Observation)
	for _, observation := range observations {
		key := observation.Key()
		tracks[key] = append(tracks[key], observation)
	}
	keys := make([]TrackKey, 0, len(tracks))
	for key, track := range tracks {
		slices.SortStableFunc(track, func(a, b Observation) int {
			return a.Frame - b.Frame
		})
		keys = append(keys, key)
	}
	slices.SortFunc(keys, compareKeys)
	return keys, tracks
}

// Analyze computes jitter statistics of every object
func Analyze(observations []Observation) []Stats {
	keys, tracks := GroupByTrack(observations)
	result := make([]Stats, 0, len(keys))
	for _, key := range keys {
		result = append(result, analyzeTrack(key, tracks[key]))
	}
	return result
}

func analyzeTrack(key TrackKey, track []Observation) Stats {
	stats := Stats{
		Track:  key,
		Frames: len(track),
	}
	lags := make([]float64, len(track))
	for i, observation := range track {
		lags[i] = distance(observation.Raw.Center(), observation.Stable.Center())
	}
	if len(lags) > 0 {
		stats.MeanLag = stat.Mean(lags, nil)
	}
	if len(track) < 3 {
		return stats
	}
	rawMoves := make([]float64, 0, len(track)-1)
	stableMoves := make([]float64, 0, len(track)-1)
	rawResize := make([]float64, 0, len(track)-1)
	stableResize := make([]float64, 0, len(track)-1)
	for i := 1; i < len(track); i++ {
		previous, current := track[i-1], track[i]
		rawMoves = append(rawMoves, distance(previous.Raw.Center(), current.Raw.Center()))
		stableMoves = append(stableMoves, distance(previous.Stable.Center(), current.Stable.Center()))
		rawResize = append(rawResize, float64(current.Raw.Width-previous.Raw.Width))
		stableResize = append(stableResize, float64(current.Stable.Width-previous.Stable.Width))
	}
	stats.RawJitter = stat.StdDev(rawMoves, nil)
	stats.StableJitter = stat.StdDev(stableMoves, nil)
	stats.RawSizeJitter = stat.StdDev(rawResize, nil)
	stats.StableSizeJitter = stat.StdDev(stableResize, nil)
	return stats
}

func distance(a, b stabilization.Entry) float64 {
	return math.Hypot(float64(a.Data0-b.Data0), float64(a.Data1-b.Data1))
}

// WriteReport writes statistics as aligned text table
func WriteReport(w io.Writer, stats []Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "track\tframes\traw jitter\tstable jitter\treduction\traw size jitter\tstable size jitter\tmean lag")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.0f%%\t%.2f\t%.2f\t%.2f\n",
			s.Track, s.Frames, s.RawJitter, s.StableJitter, s.Reduction()*100, s.RawSizeJitter, s.StableSizeJitter, s.MeanLag)
	}
	return tw.Flush()
}
