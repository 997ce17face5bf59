/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package delayqueue

import (
	"container/heap"
	"time"
)

// Item is a queued value together with the instant it becomes eligible.
type Item[T any] struct {
	Value  T
	Expiry time.Time
}

// expiryHeap is a min-heap of items keyed by Expiry. Items with equal
// expiries come out in no particular order.
type expiryHeap[T any] []Item[T]

func (h expiryHeap[T]) Len() int { return len(h) }

func (h expiryHeap[T]) Less(i, j int) bool { return h[i].Expiry.Before(h[j].Expiry) }

func (h expiryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap[T]) Push(x any) {
	*h = append(*h, x.(Item[T]))
}

func (h *expiryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = Item[T]{}
	*h = old[:n-1]
	return item
}

func (h *expiryHeap[T]) push(item Item[T]) {
	heap.Push(h, item)
}

func (h expiryHeap[T]) peek() (Item[T], bool) {
	if len(h) == 0 {
		return Item[T]{}, false
	}
	return h[0], true
}

func (h *expiryHeap[T]) pop() (Item[T], bool) {
	if len(*h) == 0 {
		return Item[T]{}, false
	}
	return heap.Pop(h).(Item[T]), true
}

func (h *expiryHeap[T]) reset() {
	clear(*h)
	*h = (*h)[:0]
}
