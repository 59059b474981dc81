package radio

import "github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/domain"

const ringCapacity = 64

type received struct {
	frame []byte
	link  domain.LinkQuality
}

// ringBuffer overwrites the oldest frame when full, like a radio FIFO.
type ringBuffer struct {
	data       [ringCapacity]received
	head, tail int // head = next pop, tail = next push
	count      int
}

func (rb *ringBuffer) push(r received) (overwrote bool) {
	if rb.count == ringCapacity {
		rb.data[rb.tail] = received{}
		rb.head = (rb.head + 1) % ringCapacity
		rb.count--
		overwrote = true
	}
	rb.data[rb.tail] = r
	rb.tail = (rb.tail + 1) % ringCapacity
	rb.count++
	return overwrote
}

func (rb *ringBuffer) pop() (received, bool) {
	if rb.count == 0 {
		return received{}, false
	}
	r := rb.data[rb.head]
	rb.data[rb.head] = received{}
	rb.head = (rb.head + 1) % ringCapacity
	rb.count--
	return r, true
}

func (rb *ringBuffer) len() int { return rb.count }
