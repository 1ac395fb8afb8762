package scope

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Recording is the JSON document of a recorded run.
type Recording struct {
	Labels []string    `json:"labels"`
	Time   []float64   `json:"time"`
	Values [][]float64 `json:"values"` // one row per frame, in label order
}

// Recorder keeps every frame in memory. It is safe to read while a run emits
// from another goroutine.
type Recorder struct {
	mu  sync.RWMutex
	rec Recording
}

func NewRecorder(labels []string) *Recorder {
	return &Recorder{rec: Recording{Labels: append([]string(nil), labels...)}}
}

func (r *Recorder) Emit(t float64, values []float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(values) != len(r.rec.Labels) {
		return fmt.Errorf("frame has %d values, recorder expects %d", len(values), len(r.rec.Labels))
	}
	r.rec.Time = append(r.rec.Time, t)
	r.rec.Values = append(r.rec.Values, append([]float64(nil), values...))
	return nil
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rec.Time)
}

// Snapshot returns a deep copy of everything recorded so far.
func (r *Recorder) Snapshot() Recording {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Recording{
		Labels: append([]string(nil), r.rec.Labels...),
		Time:   append([]float64(nil), r.rec.Time...),
		Values: make([][]float64, len(r.rec.Values)),
	}
	for i, row := range r.rec.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return out
}

// Series returns the recorded samples of one probe.
func (r *Recorder) Series(label string) ([]float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	col := -1
	for i, l := range r.rec.Labels {
		if l == label {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, false
	}
	return r.rec.column(col), true
}

// Results lays the recording out the way analysis results are keyed: "TIME"
// plus one entry per probe label.
func (r *Recorder) Results() map[string][]float64 {
	snap := r.Snapshot()
	results := make(map[string][]float64, len(snap.Labels)+1)
	results["TIME"] = snap.Time
	for col, label := range snap.Labels {
		results[label] = snap.column(col)
	}
	return results
}

// Render writes the recording as JSON.
func (r *Recorder) Render(w io.Writer) error {
	snap := r.Snapshot()
	return json.NewEncoder(w).Encode(&snap)
}

// ReadRecording decodes a document written by Render.
func ReadRecording(rd io.Reader) (Recording, error) {
	var rec Recording
	if err := json.NewDecoder(rd).Decode(&rec); err != nil {
		return Recording{}, fmt.Errorf("decoding recording: %w", err)
	}
	return rec, nil
}

// column extracts one probe's series from a recording.
func (rec Recording) column(col int) []float64 {
	series := make([]float64, len(rec.Values))
	for i, row := range rec.Values {
		if col < len(row) {
			series[i] = row[col]
		}
	}
	return series
}
