package hooks

import (
	"context"

	"github.com/dmitrijs2005/omnidesk/internal/events"
	"github.com/dmitrijs2005/omnidesk/internal/logging"
	"github.com/dmitrijs2005/omnidesk/internal/querycache"
)

// Follow applies write events published by other processes to cache until
// ctx is done. Events carrying origin, the caller's own writes, are skipped
// since those were invalidated locally already.
func Follow(ctx context.Context, cache *querycache.Cache, sub events.Subscriber, origin string, log logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	return sub.Subscribe(ctx, func(ev events.Event) {
		if origin != "" && ev.Origin == origin {
			return
		}
		n := cache.Invalidate(ev.Table)
		log.Debug(ctx, "remote write applied", "table", ev.Table, "op", ev.Op, "keys", n)
	})
}
