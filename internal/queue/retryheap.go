package queue

// retryHeap orders Retry-Scheduled items by NextRetry so the timekeeper can
// always find the next one due without scanning, and without a per-item
// timer (§4.4: "a separate timekeeper moves them back to Pending").
type retryHeap []*Item

func (h retryHeap) Len() int            { return len(h) }
func (h retryHeap) Less(i, j int) bool  { return h[i].NextRetry.Before(h[j].NextRetry) }
func (h retryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *retryHeap) Push(x any) {
	item := x.(*Item)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *retryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
