// Package systems turns host events and timer ticks into coordinator calls
// and applies the declarative results to the world.
package systems

import (
	"context"
	"time"

	"github.com/udisondev/blockregen/internal/journal"
)

// Notifier sends the depleted-node notice to a player.
type Notifier interface {
	SendDepletedNotice(ctx context.Context, player string) bool
}

// Recorder receives journal events. *journal.Writer implements it.
type Recorder interface {
	Record(e journal.Event) bool
}

type nopRecorder struct{}

func (nopRecorder) Record(journal.Event) bool { return false }

type nopNotifier struct{}

func (nopNotifier) SendDepletedNotice(context.Context, string) bool { return false }

func orNopRecorder(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func orNopNotifier(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func nowMillis(clock func() time.Time) int64 {
	return clock().UnixMilli()
}
