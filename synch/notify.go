package synch

// notifier is a one-slot wake token. A post that happens before the
// owner starts waiting is kept until the owner waits.
type notifier struct {
	c chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		c: make(chan struct{}, 1),
	}
}

func (n *notifier) wait() <-chan struct{} {
	return n.c
}

// post reports false if a token was already pending.
func (n *notifier) post() bool {
	select {
	case n.c <- struct{}{}:
		return true
	default:
		return false
	}
}
