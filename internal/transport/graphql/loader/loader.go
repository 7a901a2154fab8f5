// Package loader batches per-request lookups of users and tracking events.
// A Loaders value lives for exactly one request.
package loader

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"tms-graphql-api/internal/domain"
)

// DefaultWait 收集同一批 key 的窗口
const DefaultWait = 5 * time.Millisecond

type UserSource interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

type EventSource interface {
	EventsByShipmentIDs(ctx context.Context, ids []string) ([]domain.TrackingEvent, error)
}

type Loaders struct {
	Users  *dataloader.Loader[string, *domain.User]
	Events *dataloader.Loader[string, []domain.TrackingEvent]
}

func New(users UserSource, events EventSource, wait time.Duration) *Loaders {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Loaders{
		Users: dataloader.NewBatchedLoader(usersBatch(users),
			dataloader.WithWait[string, *domain.User](wait)),
		Events: dataloader.NewBatchedLoader(eventsBatch(events),
			dataloader.WithWait[string, []domain.TrackingEvent](wait)),
	}
}

func usersBatch(src UserSource) dataloader.BatchFunc[string, *domain.User] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[*domain.User] {
		out := make([]*dataloader.Result[*domain.User], len(keys))
		users, err := src.FindByIDs(ctx, keys)
		if err != nil {
			for i := range out {
				out[i] = &dataloader.Result[*domain.User]{Error: err}
			}
			return out
		}
		byID := make(map[string]*domain.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i, k := range keys {
			out[i] = &dataloader.Result[*domain.User]{Data: byID[k]}
		}
		return out
	}
}

func eventsBatch(src EventSource) dataloader.BatchFunc[string, []domain.TrackingEvent] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[[]domain.TrackingEvent] {
		out := make([]*dataloader.Result[[]domain.TrackingEvent], len(keys))
		events, err := src.EventsByShipmentIDs(ctx, keys)
		if err != nil {
			for i := range out {
				out[i] = &dataloader.Result[[]domain.TrackingEvent]{Error: err}
			}
			return out
		}
		groups := make(map[string][]domain.TrackingEvent, len(keys))
		for _, e := range events {
			groups[e.ShipmentID] = append(groups[e.ShipmentID], e)
		}
		for i, k := range keys {
			g := groups[k]
			if g == nil {
				g = []domain.TrackingEvent{}
			}
			slices.SortStableFunc(g, func(a, b domain.TrackingEvent) int {
				if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
					return c
				}
				return strings.Compare(b.ID, a.ID)
			})
			out[i] = &dataloader.Result[[]domain.TrackingEvent]{Data: g}
		}
		return out
	}
}

func (l *Loaders) User(ctx context.Context, id string) (*domain.User, error) {
	return l.Users.Load(ctx, id)()
}

func (l *Loaders) EventsOf(ctx context.Context, shipmentID string) ([]domain.TrackingEvent, error) {
	return l.Events.Load(ctx, shipmentID)()
}

// Forget 丢弃某运单已缓存的事件，写操作之后调用
func (l *Loaders) Forget(ctx context.Context, shipmentID string) {
	l.Events.Clear(ctx, shipmentID)
}

type ctxKey struct{}

func Attach(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// For 取当前请求的 Loaders；未挂载时返回 nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(ctxKey{}).(*Loaders)
	return l
}
