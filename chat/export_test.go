package chat

import (
	"context"

	"github.com/fwojciec/ragchat"
)

// ApplyWithoutOpenTurn folds f while a stream is marked in flight but the
// conversation holds no open turn.
func ApplyWithoutOpenTurn(r *Reducer, f ragchat.Frame) (bool, error) {
	r.mu.Lock()
	r.cancel = func() {}
	gen := r.gen
	r.mu.Unlock()
	return r.apply(context.Background(), gen, f)
}
