package book

import (
	"clobengine/internal/domain"

	"github.com/shopspring/decimal"
)

// node is an intrusive doubly-linked-list entry wrapping one resting order.
// Keeping prev/next here instead of on domain.Order keeps the order index
// (book -> order) one-directional: the order itself carries no pointer
// into the book, only the book's own index does.
type node struct {
	order *domain.Order
	prev  *node
	next  *node
	level *PriceLevel
}

// PriceLevel is one price point on a ladder: a FIFO queue of resting
// orders plus their cached aggregate quantity. Head/tail pointers give
// O(1) enqueue and O(1) unlink from anywhere in the queue via the
// node's own prev/next, without resorting to slice indices.
type PriceLevel struct {
	Price         decimal.Decimal
	head          *node
	tail          *node
	TotalQuantity decimal.Decimal
	Count         int
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, TotalQuantity: decimal.Zero}
}

// append enqueues order at the tail and returns its handle.
func (p *PriceLevel) append(o *domain.Order) *node {
	n := &node{order: o, level: p}
	if p.tail == nil {
		p.head = n
		p.tail = n
	} else {
		p.tail.next = n
		n.prev = p.tail
		p.tail = n
	}
	p.TotalQuantity = p.TotalQuantity.Add(o.RemainingQuantity)
	p.Count++
	return n
}

// peekHead returns the order at the head of the queue, or nil if empty.
func (p *PriceLevel) peekHead() *domain.Order {
	if p.head == nil {
		return nil
	}
	return p.head.order
}

// popHead unlinks and returns the head node. Caller must have already
// reduced the head order's remaining quantity to zero.
func (p *PriceLevel) popHead() *node {
	n := p.head
	if n == nil {
		return nil
	}
	p.unlink(n)
	return n
}

// unlink removes an arbitrary node from the queue in O(1), used both for
// popping a fully-consumed maker during matching and for interior removal
// on cancel.
func (p *PriceLevel) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		p.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		p.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	p.TotalQuantity = p.TotalQuantity.Sub(n.order.RemainingQuantity)
	if p.TotalQuantity.IsNegative() {
		panic("book: price level total quantity went negative")
	}
	p.Count--
}

// consumeHead subtracts qty from the head order's remaining quantity and
// from TotalQuantity. qty must not exceed the head's remaining quantity.
// If the head is now fully filled it is popped and returned with
// fullyFilled=true; otherwise the (still-resting) head order is returned
// with fullyFilled=false.
func (p *PriceLevel) consumeHead(qty decimal.Decimal) (maker *domain.Order, fullyFilled bool) {
	n := p.head
	if n == nil {
		return nil, false
	}
	n.order.Fill(qty)
	p.TotalQuantity = p.TotalQuantity.Sub(qty)
	if p.TotalQuantity.IsNegative() {
		panic("book: price level total quantity went negative")
	}
	if n.order.RemainingQuantity.IsZero() {
		p.unlink(n)
		return n.order, true
	}
	return n.order, false
}

func (p *PriceLevel) isEmpty() bool {
	return p.head == nil
}
