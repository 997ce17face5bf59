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

package ring

// Buffered is a FIFO stored in a ring which expands and contracts depending
// on the number of elements committed to it. The ring grows by the buffer
// size when it is full and shrinks by the buffer size once more than twice
// the buffer size of slots are unused. This suits queues whose length is not
// known in advance, keeping allocations proportional to churn rather than to
// every push.
//
// Buffered is not safe for concurrent use.
type Buffered[T any] struct {
	// head is the slot holding the oldest element.
	head *Ring[T]
	// tail is the next free slot. head == tail when the ring is either empty
	// or full.
	tail *Ring[T]

	end   int
	slots int
	bsize int
}

// NewBuffered creates a new Buffered ring with initialSize slots that grows
// and shrinks by bufferSize slots. Both sizes default to 1 if they are less
// than 1.
func NewBuffered[T any](initialSize, bufferSize int) *Buffered[T] {
	if initialSize < 1 {
		initialSize = 1
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	r := New[T](initialSize)
	return &Buffered[T]{
		head:  r,
		tail:  r,
		slots: initialSize,
		bsize: bufferSize,
	}
}

// PushBack adds a value to the back of the ring, growing it if full.
func (b *Buffered[T]) PushBack(value T) {
	if b.end == b.slots {
		s := New[T](b.bsize)
		b.tail.Prev().Link(s)
		b.tail = s
		b.slots += b.bsize
	}

	b.tail.Value = value
	b.tail = b.tail.Next()
	b.end++
}

// Front returns the oldest value without removing it.
func (b *Buffered[T]) Front() (T, bool) {
	if b.end == 0 {
		var zero T
		return zero, false
	}
	return b.head.Value, true
}

// PopFront removes and returns the oldest value. If more than twice the
// buffer size of slots are then unused, the ring shrinks by the buffer size.
func (b *Buffered[T]) PopFront() (T, bool) {
	var zero T
	if b.end == 0 {
		return zero, false
	}

	v := b.head.Value
	b.head.Value = zero
	b.head = b.head.Next()
	b.end--

	if b.slots-b.end > b.bsize*2 {
		p := b.tail.Prev()
		p.Unlink(b.bsize)
		b.tail = p.Next()
		b.slots -= b.bsize
		if b.end == 0 {
			b.head = b.tail
		}
	}

	return v, true
}

// Len returns the number of elements in the ring.
func (b *Buffered[T]) Len() int {
	return b.end
}

// Slots returns the number of allocated slots.
func (b *Buffered[T]) Slots() int {
	return b.slots
}

// Range ranges over the values from oldest to newest until the given
// function returns false.
func (b *Buffered[T]) Range(fn func(T) bool) {
	x := b.head
	for range b.end {
		if !fn(x.Value) {
			return
		}
		x = x.Next()
	}
}

// Reset drops every value and returns the ring to a single buffer of slots.
func (b *Buffered[T]) Reset() {
	r := New[T](b.bsize)
	b.head = r
	b.tail = r
	b.end = 0
	b.slots = b.bsize
}
