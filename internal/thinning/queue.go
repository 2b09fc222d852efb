package thinning

import "container/heap"

// FluxPoint is the unit of work of the thinning queue.
type FluxPoint struct {
	X, Y int
	Flux float32
}

type queueItem struct {
	point FluxPoint
	seq   uint64
}

// fluxHeap is a max-heap on Flux. Equal flux values pop in insertion order,
// which makes the skeleton deterministic on symmetric shapes.
type fluxHeap []queueItem

func (h fluxHeap) Len() int { return len(h) }

func (h fluxHeap) Less(i, j int) bool {
	if h[i].point.Flux != h[j].point.Flux {
		return h[i].point.Flux > h[j].point.Flux
	}
	return h[i].seq < h[j].seq
}

func (h fluxHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *fluxHeap) Push(x any) {
	*h = append(*h, x.(queueItem))
}

func (h *fluxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type fluxQueue struct {
	items fluxHeap
	next  uint64
}

func (q *fluxQueue) push(p FluxPoint) {
	heap.Push(&q.items, queueItem{point: p, seq: q.next})
	q.next++
}

func (q *fluxQueue) pop() FluxPoint {
	return heap.Pop(&q.items).(queueItem).point
}

func (q *fluxQueue) empty() bool {
	return len(q.items) == 0
}
