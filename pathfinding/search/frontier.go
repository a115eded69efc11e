package search

import (
	"container/heap"

	"github.com/wricardo/gridpath/pathfinding/grid"
)

type frontierItem struct {
	coord    grid.Coord
	distance float64
	seq      uint64
}

// frontierQueue orders by distance, then by insertion order so equal
// distances are served first-in first-out.
type frontierQueue []frontierItem

func (q frontierQueue) Len() int { return len(q) }
func (q frontierQueue) Less(i, j int) bool {
	if q[i].distance != q[j].distance {
		return q[i].distance < q[j].distance
	}
	return q[i].seq < q[j].seq
}
func (q frontierQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *frontierQueue) Push(x any) {
	*q = append(*q, x.(frontierItem))
}

func (q *frontierQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// frontier is a min-priority queue without decrease-key. A cell may be
// pushed several times; callers drop entries for finalized cells on pop.
type frontier struct {
	queue frontierQueue
	seq   uint64
}

func (f *frontier) push(c grid.Coord, distance float64) {
	heap.Push(&f.queue, frontierItem{coord: c, distance: distance, seq: f.seq})
	f.seq++
}

func (f *frontier) pop() (grid.Coord, float64) {
	item := heap.Pop(&f.queue).(frontierItem)
	return item.coord, item.distance
}

func (f *frontier) len() int { return f.queue.Len() }
