package elevator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEnqueueBasics(t *testing.T) {
	var q []int

	q = cq_enqueue(q, 5, 2)
	assert.Equal(t, []int{5, 2}, q)

	// Same call again: nothing changes.
	q = cq_enqueue(q, 5, 2)
	assert.Equal(t, []int{5, 2}, q)
}

func TestEnqueueSameFloor(t *testing.T) {
	var q = cq_enqueue(nil, 3, 3)
	assert.Empty(t, q)
}

func TestEnqueueDestinationAlreadyAhead(t *testing.T) {
	// 7 is queued, then someone calls from 9 going to 7.  The
	// rider is not aboard until the car stops at 9, so 7 has to
	// move behind it.
	var q []int
	q = cq_enqueue(q, 2, 7)
	q = cq_enqueue(q, 9, 7)

	assert.Equal(t, []int{2, 9, 7}, q)
}

func TestEnqueueSourceAlreadyQueued(t *testing.T) {
	var q []int
	q = cq_enqueue(q, 4, 8)
	q = cq_enqueue(q, 4, 6)

	assert.Equal(t, []int{4, 8, 6}, q)
}

func TestEnqueueCapacity(t *testing.T) {
	var q []int
	for f := 1; len(q) < MAX_QUEUE_STOPS; f += 2 {
		q = cq_enqueue(q, f, f+1)
	}

	assert.Len(t, q, MAX_QUEUE_STOPS)

	// Full queue: appends dropped silently.
	q = cq_enqueue(q, 500, 501)
	assert.Len(t, q, MAX_QUEUE_STOPS)
	assert.Equal(t, -1, cq_index(q, 500))
	assert.Equal(t, -1, cq_index(q, 501))
}

func TestHeadAndPop(t *testing.T) {
	var q = cq_enqueue(nil, 5, 2)

	var head, ok = cq_head(q)
	assert.True(t, ok)
	assert.Equal(t, 5, head)

	q = cq_pop_head(q)
	head, ok = cq_head(q)
	assert.True(t, ok)
	assert.Equal(t, 2, head)

	q = cq_pop_head(q)
	_, ok = cq_head(q)
	assert.False(t, ok)

	// Popping an empty queue is harmless.
	assert.Empty(t, cq_pop_head(q))
}

// The ordering invariant: after each enqueue in any sequence, that
// call's (src, dst) pair, when both floors are present, has src ahead
// of dst, and no floor ever appears twice.
func TestEnqueueInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var floorGen = rapid.IntRange(-5, 10).Filter(func(n int) bool { return n != 0 })

		var q []int

		var n = rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			var src = floorGen.Draw(t, "src")
			var dst = floorGen.Draw(t, "dst")
			q = cq_enqueue(q, src, dst)

			// As each enqueue settles, its own pair is ordered.
			// (A later call may legitimately move this dst again.)
			if src != dst {
				var si = cq_index(q, src)
				var di = cq_index(q, dst)
				if si >= 0 && di >= 0 {
					assert.Less(t, si, di, "src %d must precede dst %d in %v", src, dst, q)
				}
			}

			var seen = make(map[int]bool)
			for _, f := range q {
				assert.False(t, seen[f], "duplicate floor %d in %v", f, q)
				seen[f] = true
			}

			assert.LessOrEqual(t, len(q), MAX_QUEUE_STOPS)
		}
	})
}
