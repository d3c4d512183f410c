package synch

// seqnum numbers sleep attempts and wait node lifetimes. Only equality
// is meaningful, so wrapping is harmless.
type seqnum uint32

func (v seqnum) next() seqnum {
	return v + 1
}
