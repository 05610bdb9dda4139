package concurrent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKeepsInputOrder(t *testing.T) {
	jobs := make([]int, 500)
	for i := range jobs {
		jobs[i] = i
	}

	for _, workers := range []int{0, 1, 7} {
		got := Map(workers, jobs, func(n int) int { return n * n })
		for i, v := range got {
			assert.Equal(t, i*i, v)
		}
	}

	assert.Empty(t, Map(4, []string{}, func(s string) int { return len(s) }))
}

func TestWorkerPool(t *testing.T) {
	wp := NewWorkerPool[int, int](3, 10)
	wp.Start(func(n int) int { return n + 1 })
	for i := 0; i < 10; i++ {
		wp.AddJob(i)
	}
	wp.Close()
	wp.Wait()

	sum := 0
	for r := range wp.CollectResults() {
		sum += r
	}
	assert.Equal(t, 55, sum)
}
