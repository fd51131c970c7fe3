package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	counters map[string]float64
	samples  map[string][]float64
	flushErr error
	flushed  int
}

func newRecorder() *recorder {
	return &recorder{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recorder) IncCounter(name string, delta float64, labels Labels) {
	r.counters[name+"/"+labels["format"]] += delta
}

func (r *recorder) ObserveHistogram(name string, v float64, labels Labels) {
	r.samples[name] = append(r.samples[name], v)
}

func (r *recorder) Flush() error {
	r.flushed++
	return r.flushErr
}

func TestPackageFunctionsUseBackend(t *testing.T) {
	r := newRecorder()
	SetBackend(r)
	t.Cleanup(func() { SetBackend(nil) })

	IncCounter(RowsTotal, 3, Labels{"format": "jsonl"})
	IncCounter(RowsTotal, 2, Labels{"format": "jsonl"})
	ObserveHistogram(StageDuration, 0.5, nil)

	assert.Equal(t, 5.0, r.counters[RowsTotal+"/jsonl"])
	assert.Equal(t, []float64{0.5}, r.samples[StageDuration])

	r.flushErr = errors.New("boom")
	assert.EqualError(t, Flush(), "boom")
	assert.Equal(t, 1, r.flushed)
}

func TestNopBackend(t *testing.T) {
	SetBackend(nil)
	IncCounter(RunsTotal, 1, nil)
	assert.NoError(t, Flush())
}
