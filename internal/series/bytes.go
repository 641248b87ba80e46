package series

// MakeBinary allocates a byte-width series used as a binary! backing
// store (spec.md §3.2/§3.3). Width is fixed at 1.
func (h *Heap) MakeBinary(capacity int) (Ref, error) {
	return h.makeByteSeries(capacity, 0)
}

// MakeString allocates a byte-width series flagged UTF8String, used as a
// string! backing store. ion stores strings as UTF-8 bytes rather than
// the fixed-width-codepoint representation spec.md's original lineage
// used, matching idiomatic Go string handling; indexing operations above
// this layer (internal/eval) are responsible for codepoint-aware walks.
func (h *Heap) MakeString(capacity int) (Ref, error) {
	return h.makeByteSeries(capacity, FlagUTF8String)
}

func (h *Heap) makeByteSeries(capacity int, extra Flags) (Ref, error) {
	if capacity < 0 || capacity > MaxAllocElems {
		return Ref{}, ErrOutOfMemory
	}
	r := h.alloc(1, extra)
	n := h.mustNode(r)
	if capacity > 0 {
		buf := make([]byte, capacity)
		n.dyn = &dynamicData{bytes: buf, bias: 0, length: 0}
		n.flags |= FlagHasDynamic
	}
	return r, nil
}

// Bytes returns the live byte range [0,len) for a binary!/string! series.
// The returned slice aliases backing storage; see Cells for the same
// reallocation caveat.
func (h *Heap) Bytes(r Ref) []byte {
	n := h.mustNode(r)
	if n.IsArray() {
		panic("series: Bytes on an array series")
	}
	if n.dyn == nil {
		return nil
	}
	return n.dyn.bytes[n.dyn.bias : n.dyn.bias+n.dyn.length]
}

// ExpandBytesTail appends n zeroed bytes to a binary!/string! series,
// reallocating (power-of-2 growth) when the rest budget is exhausted.
func (h *Heap) ExpandBytesTail(r Ref, n int) error {
	nd := h.mustNode(r)
	if err := h.checkMutable(nd); err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	newLen := nd.byteLen() + n
	if newLen > MaxAllocElems {
		return ErrOutOfMemory
	}
	if nd.dyn == nil {
		nd.dyn = &dynamicData{bytes: make([]byte, newLen)}
		nd.flags |= FlagHasDynamic
	} else if len(nd.dyn.bytes)-nd.dyn.bias < newLen {
		h.growBytesRest(nd, newLen-(len(nd.dyn.bytes)-nd.dyn.bias))
	}
	nd.dyn.length = newLen
	return nil
}

// AppendBytes writes p to the tail of a binary!/string! series.
func (h *Heap) AppendBytes(r Ref, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	oldLen := h.mustNode(r).byteLen()
	if err := h.ExpandBytesTail(r, len(p)); err != nil {
		return err
	}
	d := h.mustNode(r).dyn
	copy(d.bytes[d.bias+oldLen:d.bias+d.length], p)
	return nil
}

// TakeBytesHead removes n bytes from the head via bias, matching the
// array TakeHead strategy (spec.md §4.2, §8 "Bias bounded").
func (h *Heap) TakeBytesHead(r Ref, n int) error {
	nd := h.mustNode(r)
	if err := h.checkMutable(nd); err != nil {
		return err
	}
	if n <= 0 || nd.dyn == nil {
		return nil
	}
	if n > nd.dyn.length {
		panic("series: TakeBytesHead n exceeds length")
	}
	nd.dyn.bias += n
	nd.dyn.length -= n
	if nd.dyn.bias > MaxBias {
		buf := make([]byte, nd.dyn.length)
		copy(buf, nd.dyn.bytes[nd.dyn.bias:nd.dyn.bias+nd.dyn.length])
		nd.dyn.bytes = buf
		nd.dyn.bias = 0
	}
	return nil
}

func (h *Heap) growBytesRest(n *Node, extra int) {
	d := n.dyn
	newCap := len(d.bytes) + extra
	p := 1
	for p < newCap {
		p *= 2
	}
	n.flags |= FlagPowerOf2Alloc
	buf := make([]byte, p)
	copy(buf, d.bytes)
	d.bytes = buf
}

func (n *Node) byteLen() int {
	if n.dyn == nil {
		return 0
	}
	return n.dyn.length
}
