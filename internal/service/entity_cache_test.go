package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/domain"
)

func tagList(tags ...domain.Tag) map[string]any {
	return map[string]any{"tags": tags}
}

func newLoadedTagCache(t *testing.T, initial ...domain.Tag) (*fakeServer, *EntityCache[domain.Tag], *RecordingNotifier) {
	t.Helper()
	srv, client := newFakeServer(t)
	srv.handle("/tag/getall", func(map[string]any) (int, any) { return ok(tagList(initial...)) })
	notifier := NewRecordingNotifier(nil)
	cache := NewTagCache(zap.NewNop(), client, notifier, "/tag")
	require.NoError(t, cache.LoadAll(context.Background()))
	return srv, cache, notifier
}

func TestEntityCacheSubscribeReplaysLatestState(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "camp"})
	next := int64(10)
	srv.handle("/tag/create", func(body map[string]any) (int, any) {
		next++
		return ok(map[string]any{"tag": domain.Tag{TagID: next, TagName: body["tagName"].(string)}})
	})

	for _, name := range []string{"zoner", "bait", "rushdown"} {
		_, err := cache.Create(context.Background(), domain.Tag{TagName: name})
		require.NoError(t, err)
	}

	var got [][]domain.Tag
	cancel := cache.Subscribe(func(tags []domain.Tag) { got = append(got, tags) })
	defer cancel()

	require.Len(t, got, 1)
	names := make([]string, 0, len(got[0]))
	for _, tg := range got[0] {
		names = append(names, tg.TagName)
	}
	require.Equal(t, []string{"bait", "camp", "rushdown", "zoner"}, names)
}

func TestEntityCacheSubscribeBeforeLoadGetsNil(t *testing.T) {
	_, client := newFakeServer(t)
	cache := NewTagCache(zap.NewNop(), client, nil, "/tag")

	var calls int
	var first []domain.Tag
	cancel := cache.Subscribe(func(tags []domain.Tag) {
		calls++
		if calls == 1 {
			first = tags
		}
	})
	defer cancel()

	require.Equal(t, 1, calls)
	require.Nil(t, first)
	require.False(t, cache.Loaded())
	require.Nil(t, cache.Items())
}

func TestEntityCacheDeleteIsIdempotent(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t,
		domain.Tag{TagID: 1, TagName: "a"},
		domain.Tag{TagID: 2, TagName: "b"},
	)
	srv.handle("/tag/delete", func(map[string]any) (int, any) { return ok(nil) })

	var publications int
	cancel := cache.Subscribe(func([]domain.Tag) { publications++ })
	defer cancel()
	publications = 0

	require.NoError(t, cache.Delete(context.Background(), 2))
	require.Equal(t, 1, publications)
	require.NoError(t, cache.Delete(context.Background(), 2))
	require.Equal(t, 1, publications, "second delete must not republish")
	require.Equal(t, []domain.Tag{{TagID: 1, TagName: "a"}}, cache.Items())

	calls := srv.callsTo("/tag/delete")
	require.Len(t, calls, 2)
	require.Equal(t, float64(2), calls[0].Body["tagId"])
}

func TestEntityCacheCreateAppendsOnce(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	srv.handle("/tag/create", func(map[string]any) (int, any) {
		return ok(map[string]any{"tag": domain.Tag{TagID: 7, TagName: "new"}})
	})

	created, err := cache.Create(context.Background(), domain.Tag{TagName: "new"})
	require.NoError(t, err)
	require.Equal(t, int64(7), created.TagID)

	// El servidor confirma el mismo id dos veces: no se duplica.
	_, err = cache.Create(context.Background(), domain.Tag{TagName: "new"})
	require.NoError(t, err)

	items := cache.Items()
	require.Len(t, items, 2)
	count := 0
	for _, it := range items {
		if it.TagID == 7 {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestEntityCacheCreateAdoptsReturnedID(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t)
	srv.handle("/tag/create", func(map[string]any) (int, any) { return ok(map[string]any{"tagId": 42}) })

	created, err := cache.Create(context.Background(), domain.Tag{TagName: "spacing"})
	require.NoError(t, err)
	require.Equal(t, domain.Tag{TagID: 42, TagName: "spacing"}, created)
	require.Equal(t, []domain.Tag{created}, cache.Items())
}

func TestEntityCacheCreateWithoutDataLeavesCacheUntouched(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	srv.handle("/tag/create", func(map[string]any) (int, any) {
		return 200, map[string]any{"success": true}
	})

	_, err := cache.Create(context.Background(), domain.Tag{TagName: "b"})
	require.ErrorIs(t, err, apiclient.ErrEmptyData)
	require.Len(t, cache.Items(), 1)
}

func TestEntityCacheRejectedWriteLeavesCacheUntouched(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	srv.handle("/tag/update", func(map[string]any) (int, any) { return rejected("nope") })

	var publications int
	cancel := cache.Subscribe(func([]domain.Tag) { publications++ })
	defer cancel()
	publications = 0

	_, err := cache.Update(context.Background(), domain.Tag{TagID: 1, TagName: "renamed"})
	var rej *apiclient.RejectedError
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "nope", rej.Message)
	require.Equal(t, 0, publications)
	require.Equal(t, "a", cache.Items()[0].TagName)
}

func TestEntityCacheUpdateReplacesByID(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t,
		domain.Tag{TagID: 1, TagName: "a"},
		domain.Tag{TagID: 2, TagName: "b"},
	)
	srv.handle("/tag/update", func(body map[string]any) (int, any) {
		return ok(map[string]any{"tag": domain.Tag{TagID: int64(body["tagId"].(float64)), TagName: body["tagName"].(string)}})
	})

	_, err := cache.Update(context.Background(), domain.Tag{TagID: 1, TagName: "aa"})
	require.NoError(t, err)
	require.Equal(t, []domain.Tag{{TagID: 1, TagName: "aa"}, {TagID: 2, TagName: "b"}}, cache.Items())
}

func TestEntityCacheLoadFailureKeepsLastValue(t *testing.T) {
	srv, cache, notifier := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	srv.handle("/tag/getall", func(map[string]any) (int, any) { return serverError() })

	err := cache.LoadAll(context.Background())
	require.Error(t, err)
	require.Equal(t, []domain.Tag{{TagID: 1, TagName: "a"}}, cache.Items())

	toasts, _ := notifier.Drain()
	require.Len(t, toasts, 1)
	require.Equal(t, ToastDanger, toasts[0].Level)
	require.Equal(t, "Unable to get data.", toasts[0].Message)
}

func TestEntityCacheCreateBeforeLoadIsNotListed(t *testing.T) {
	srv, client := newFakeServer(t)
	srv.handle("/tag/create", func(map[string]any) (int, any) {
		return ok(map[string]any{"tag": domain.Tag{TagID: 3, TagName: "x"}})
	})
	cache := NewTagCache(zap.NewNop(), client, nil, "/tag")

	created, err := cache.Create(context.Background(), domain.Tag{TagName: "x"})
	require.NoError(t, err)
	require.Equal(t, int64(3), created.TagID)
	require.False(t, cache.Loaded())
}

func TestEntityCacheSubscribersReceiveCopies(t *testing.T) {
	_, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	cancel := cache.Subscribe(func(tags []domain.Tag) {
		if len(tags) > 0 {
			tags[0].TagName = "mutated"
		}
	})
	defer cancel()
	require.Equal(t, "a", cache.Items()[0].TagName)
}

func TestEntityCacheResetPublishesNil(t *testing.T) {
	_, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "a"})
	var last []domain.Tag
	cancel := cache.Subscribe(func(tags []domain.Tag) { last = tags })
	defer cancel()

	cache.Reset()
	require.Nil(t, last)
	require.False(t, cache.Loaded())
}

func TestCharacterCacheRetriesReads(t *testing.T) {
	srv, client := newFakeServer(t)
	attempts := 0
	srv.handle("/character/getall", func(map[string]any) (int, any) {
		attempts++
		if attempts < 3 {
			return serverError()
		}
		return ok(map[string]any{"characters": []domain.Character{
			{CharacterID: 2, CharacterName: "Zelda"},
			{CharacterID: 1, CharacterName: "Bayonetta"},
		}})
	})
	cache := NewCharacterCache(zap.NewNop(), client, nil, "/character", apiclient.RetryPolicy{Attempts: 3, Delay: 0})

	require.NoError(t, cache.LoadAll(context.Background()))
	require.Equal(t, 3, attempts)
	items := cache.Items()
	require.Equal(t, "Bayonetta", items[0].CharacterName)
	require.Equal(t, "Zelda", items[1].CharacterName)
}

func TestEntityCacheSubscriberCanReadCache(t *testing.T) {
	srv, client := newFakeServer(t)
	srv.handle("/tag/getall", func(map[string]any) (int, any) {
		return ok(tagList(domain.Tag{TagID: 1, TagName: "camp"}))
	})
	cache := NewTagCache(zap.NewNop(), client, nil, "/tag")

	var seen []int
	cancel := cache.Subscribe(func([]domain.Tag) {
		if cache.Loaded() {
			_, _ = cache.Find(1)
			seen = append(seen, len(cache.Items()))
		}
	})
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cache.LoadAll(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadAll blocked on a subscriber reading the cache")
	}
	require.Equal(t, []int{1}, seen)
}

func TestEntityCacheSubscriberCanWriteFromCallback(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "camp"})
	srv.handle("/tag/delete", func(map[string]any) (int, any) { return ok(nil) })

	var lengths []int
	cancel := cache.Subscribe(func(tags []domain.Tag) {
		lengths = append(lengths, len(tags))
		if len(tags) == 2 {
			cache.Mutate(func(list []domain.Tag) []domain.Tag { return list[:1] })
		}
	})
	defer cancel()

	cache.Mutate(func(list []domain.Tag) []domain.Tag {
		return append(list, domain.Tag{TagID: 2, TagName: "zoner"})
	})
	require.Equal(t, []int{1, 2, 1}, lengths)
	require.Len(t, cache.Items(), 1)
}

func TestEntityCacheResetDropsInFlightLoad(t *testing.T) {
	srv, client := newFakeServer(t)
	release := make(chan struct{})
	srv.handle("/tag/getall", func(map[string]any) (int, any) {
		<-release
		return ok(tagList(domain.Tag{TagID: 1, TagName: "camp"}))
	})
	notifier := NewRecordingNotifier(nil)
	cache := NewTagCache(zap.NewNop(), client, notifier, "/tag")

	done := make(chan error, 1)
	go func() { done <- cache.LoadAll(context.Background()) }()
	require.Eventually(t, func() bool { return len(srv.callsTo("/tag/getall")) == 1 }, 2*time.Second, 5*time.Millisecond)

	cache.Reset()
	close(release)

	err := <-done
	require.ErrorIs(t, err, ErrLoadSuperseded)
	require.False(t, cache.Loaded())
	require.Nil(t, cache.Items())
	toasts, _ := notifier.Drain()
	require.Empty(t, toasts)
}

func TestEntityCacheWriteConfirmedAfterResetIsDropped(t *testing.T) {
	srv, cache, _ := newLoadedTagCache(t, domain.Tag{TagID: 1, TagName: "camp"})
	release := make(chan struct{})
	srv.handle("/tag/create", func(map[string]any) (int, any) {
		<-release
		return ok(map[string]any{"tag": domain.Tag{TagID: 2, TagName: "zoner"}})
	})

	done := make(chan error, 1)
	go func() {
		_, err := cache.Create(context.Background(), domain.Tag{TagName: "zoner"})
		done <- err
	}()
	require.Eventually(t, func() bool { return len(srv.callsTo("/tag/create")) == 1 }, 2*time.Second, 5*time.Millisecond)

	cache.Reset()
	require.NoError(t, cache.LoadAll(context.Background()))
	close(release)
	require.NoError(t, <-done)

	items := cache.Items()
	require.Len(t, items, 1)
	require.Equal(t, int64(1), items[0].TagID)
}

func TestHighlightsSubscriberCanQuery(t *testing.T) {
	h := NewHighlights(time.Minute)
	var seen []bool
	cancel := h.Subscribe(func(map[int64]bool) { seen = append(seen, h.IsNew(7)) })
	defer cancel()

	h.Mark(7)
	h.Clear()
	require.Equal(t, []bool{false, true, false}, seen)
}
