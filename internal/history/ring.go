package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/Tyrowin/relaychat/internal/store"
)

// MaxMessages is the history capacity: appends beyond it evict the oldest
// records.
const MaxMessages = 50

// Ring is the bounded message log replayed to new joiners. Append pushes then
// trims; the two steps are separate backend commands, so the log can
// transiently exceed capacity between them and self-heals on the next append.
type Ring struct {
	store store.HistoryStore
	limit int
	log   *zap.Logger
}

// NewRing creates a history ring. A non-positive limit selects MaxMessages.
func NewRing(s store.HistoryStore, limit int, log *zap.Logger) *Ring {
	if limit <= 0 {
		limit = MaxMessages
	}
	return &Ring{
		store: s,
		limit: limit,
		log:   log.With(zap.String("component", "history")),
	}
}

// Append records a message at the head of the log and trims to capacity.
// Backend failures are logged and swallowed: the live broadcast must proceed
// even when persistence fails.
func (r *Ring) Append(ctx context.Context, nickname, color, body string) {
	record := Encode(nickname, color, body)
	if err := r.store.Push(ctx, record); err != nil {
		r.log.Error("history append failed", zap.Error(err))
		return
	}
	if err := r.store.Trim(ctx, r.limit); err != nil {
		r.log.Error("history trim failed", zap.Error(err))
	}
}

// Replay returns the stored records in oldest-first order for natural reading
// by a newly joined connection. A backend failure yields an empty replay.
func (r *Ring) Replay(ctx context.Context) []Record {
	raw, err := r.store.Range(ctx, r.limit)
	if err != nil {
		r.log.Error("history replay failed", zap.Error(err))
		return nil
	}

	records := make([]Record, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		records = append(records, Decode(raw[i]))
	}
	return records
}
