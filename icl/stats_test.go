package icl

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyStats_Sample(t *testing.T) {
	ls := newLatencyStats("ccd_open")
	ls.sample(10 * time.Millisecond)
	ls.sample(30 * time.Millisecond)
	ls.sample(20 * time.Millisecond)

	assert.Equal(t, int64(3), ls.count)
	assert.Equal(t, 10*time.Millisecond, ls.min)
	assert.Equal(t, 30*time.Millisecond, ls.max)
}

func TestLatencyStats_ConcurrentSamples(t *testing.T) {
	ls := newLatencyStats("ccd_isOpen")

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ls.sample(time.Duration(n) * time.Microsecond)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1000), ls.count)
}

func TestStatsRegistry_SamplePerCommand(t *testing.T) {
	r := NewStatsRegistry()
	r.Sample("ccd_open", 5*time.Millisecond)
	r.Sample("ccd_open", 15*time.Millisecond)
	r.Sample("mono_init", time.Second)

	assert.Len(t, r.stats, 2)
	assert.Equal(t, int64(2), r.stats["ccd_open"].count)
	assert.Equal(t, int64(1), r.stats["mono_init"].count)
}
