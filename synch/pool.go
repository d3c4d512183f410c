package synch

import "sync"

// nodePool recycles named wait nodes. A node keeps its generation across
// reuse so stale references can tell it has been recycled.
type nodePool struct {
	cache sync.Pool
}

func newNodePool() *nodePool {
	return &nodePool{
		cache: sync.Pool{
			New: func() interface{} {
				return new(waitNode)
			},
		},
	}
}

func (p *nodePool) get(id int64) *waitNode {
	n := p.cache.Get().(*waitNode)
	n.id = id
	return n
}

func (p *nodePool) put(n *waitNode) {
	n.gen = n.gen.next()
	n.id = 0
	n.waiters = 0
	n.elem = nil
	p.cache.Put(n)
}
