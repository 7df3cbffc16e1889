package live

import (
	"context"

	"github.com/lukasdemani/searcher-app/internal/model"
)

// Source is a producer of live updates. The push Transport and the
// fallback Poller both implement it.
type Source interface {
	Updates() <-chan model.Update
}

// Pump forwards every update from src to apply, in delivery order, until
// ctx is done.
func Pump(ctx context.Context, src Source, apply func(model.Update)) {
	updates := src.Updates()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			apply(u)
		}
	}
}
