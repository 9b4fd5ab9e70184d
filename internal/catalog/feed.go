// Package catalog keeps the product and category lists in memory and
// refetches them whenever the change feed reports a write.
package catalog

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/waraqa-store/api/internal/changefeed"
)

// Feed is the change-feed surface the stores subscribe to.
type Feed interface {
	Subscribe(tables ...string) *changefeed.Subscription
}

const refetchTimeout = 10 * time.Second

// follower runs refetch for every change delivered on sub until Close.
type follower struct {
	sub  *changefeed.Subscription
	wg   sync.WaitGroup
	once sync.Once
}

func follow(feed Feed, name string, refetch func(context.Context) error, tables ...string) *follower {
	f := &follower{sub: feed.Subscribe(tables...)}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for range f.sub.C {
			ctx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
			if err := refetch(ctx); err != nil {
				log.Printf("ERROR: refetch %s: %v", name, err)
			}
			cancel()
		}
	}()
	return f
}

func (f *follower) close() {
	f.once.Do(func() {
		f.sub.Unsubscribe()
		f.wg.Wait()
	})
}
