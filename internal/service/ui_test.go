package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smush/internal/domain"
)

func TestParseAndFormatGsp(t *testing.T) {
	cases := []struct {
		in   string
		want *int64
	}{
		{"", nil},
		{"   ", nil},
		{"1,234,567", domain.Ptr(int64(1234567))},
		{"980", domain.Ptr(int64(980))},
		{"12 345", domain.Ptr(int64(12345))},
	}
	for _, c := range cases {
		got, err := ParseGsp(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}

	_, err := ParseGsp("99999999999999999999")
	require.Error(t, err)

	require.Equal(t, "0", FormatGsp(0))
	require.Equal(t, "999", FormatGsp(999))
	require.Equal(t, "1,000", FormatGsp(1000))
	require.Equal(t, "12,345,678", FormatGsp(12345678))
	require.Equal(t, "-1,500", FormatGsp(-1500))
	require.Equal(t, "", FormatGspPtr(nil))
}

func TestCanAccess(t *testing.T) {
	anon := domain.Session{}
	user := domain.Session{User: &domain.User{UserID: 1}}
	admin := domain.Session{User: &domain.User{UserID: 2, UserRoles: []domain.Role{{RoleName: "Administrator"}}}}

	cases := []struct {
		route   string
		session domain.Session
		want    bool
	}{
		{RouteHome, anon, true},
		{"/", anon, true},
		{RouteResetPasswordRequest, anon, true},
		{RouteResetPasswordToken + "?token=abc", anon, true},
		{RouteMatches, anon, false},
		{RouteMatches, user, true},
		{RouteInsights + "/", user, true},
		{RouteProfileEdit, anon, false},
		{RouteAdmin, user, false},
		{RouteAdmin, anon, false},
		{RouteAdmin, admin, true},
		{"/admin/tags", user, false},
		{"/nowhere", anon, true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CanAccess(c.route, c.session), c.route)
	}
	require.False(t, KnownRoute("/nowhere"))
	require.True(t, KnownRoute("/matches/"))
}

func TestNextSortDirection(t *testing.T) {
	d := SortNone
	var seen []SortDirection
	for i := 0; i < 4; i++ {
		d = NextSortDirection(d)
		seen = append(seen, d)
	}
	require.Equal(t, []SortDirection{SortAsc, SortDesc, SortNone, SortAsc}, seen)
}

func TestSortMatchesKeepsNilLast(t *testing.T) {
	matches := []domain.Match{
		{MatchID: 1, UserCharacterGsp: domain.Ptr(int64(300))},
		{MatchID: 2},
		{MatchID: 3, UserCharacterGsp: domain.Ptr(int64(100))},
	}

	ids := func(ms []domain.Match) []int64 {
		out := make([]int64, len(ms))
		for i, m := range ms {
			out[i] = m.MatchID
		}
		return out
	}
	require.Equal(t, []int64{3, 1, 2}, ids(SortMatches(matches, MatchColumnUserGsp, SortAsc)))
	require.Equal(t, []int64{1, 3, 2}, ids(SortMatches(matches, MatchColumnUserGsp, SortDesc)))
	require.Equal(t, []int64{1, 2, 3}, ids(SortMatches(matches, MatchColumnUserGsp, SortNone)))
	require.Equal(t, []int64{1, 2, 3}, ids(matches), "input must not be reordered")
}

func TestTypeaheadSearch(t *testing.T) {
	var chars []domain.Character
	for _, n := range []string{"Mario", "Dr. Mario", "Marth", "Lucina", "Roy", "Ike"} {
		chars = append(chars, domain.Character{CharacterName: n})
	}
	for i := 0; i < 20; i++ {
		chars = append(chars, domain.Character{CharacterName: "Mii Brawler"})
	}
	ta := NewTypeahead(func(c domain.Character) string { return c.CharacterName })

	require.Empty(t, ta.Search(chars, ""))
	got := ta.Search(chars, "MAR")
	require.Len(t, got, 3)
	require.Equal(t, "Mario", got[0].CharacterName)
	require.Len(t, ta.Search(chars, "m"), 10)
}

func TestDebounceEmitsAfterQuietPeriod(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan string, 8)
	out := Debounce(ctx, in, 50*time.Millisecond)

	in <- "m"
	in <- "ma"
	in <- "mar"
	require.Equal(t, "mar", <-out)

	in <- "mar"
	in <- "lu"
	require.Equal(t, "lu", <-out)

	in <- "lu"
	close(in)
	_, more := <-out
	require.False(t, more, "duplicate of the last emitted term is dropped")
}

func TestCharacterUsage(t *testing.T) {
	day := func(d int) *time.Time {
		v := time.Date(2026, 1, d, 18, 0, 0, 0, time.UTC)
		return &v
	}
	matches := []domain.Match{
		{UserID: 1, Created: day(1), OpponentCharacterName: "Kirby"},
		{UserID: 1, Created: day(2), OpponentCharacterName: "Kirby"},
		{UserID: 1, Created: day(2), OpponentCharacterName: "Fox"},
		{UserID: 1, Created: day(3), OpponentCharacterName: "Zelda"},
		{UserID: 2, Created: day(2), OpponentCharacterName: "Fox"},
	}

	filter := UsageFilter{Start: day(2), End: day(3), UserID: 1, Location: time.UTC}
	got := CharacterUsage(matches, filter, UsageSortAlpha, SortAsc)
	require.Len(t, got, 3)
	require.Equal(t, "Fox", got[0].Name)
	require.InDelta(t, 100.0/3, got[0].Percent, 0.001)

	all := CharacterUsage(matches, UsageFilter{Location: time.UTC}, UsageSortUse, SortDesc)
	require.Equal(t, "Kirby", all[0].Name)
	require.InDelta(t, 40.0, all[0].Percent, 0.001)

	require.Nil(t, CharacterUsage(matches, UsageFilter{UserID: 99}, UsageSortUse, SortDesc))
}

func TestGspHistoryIsChronological(t *testing.T) {
	at := func(h int) *time.Time {
		v := time.Date(2026, 1, 1, h, 0, 0, 0, time.UTC)
		return &v
	}
	matches := []domain.Match{
		{UserID: 1, Created: at(3), UserCharacterID: domain.Ptr(int64(4)), UserCharacterGsp: domain.Ptr(int64(300))},
		{UserID: 1, Created: at(1), UserCharacterID: domain.Ptr(int64(4)), UserCharacterGsp: domain.Ptr(int64(100))},
		{UserID: 1, Created: at(2), UserCharacterID: domain.Ptr(int64(5)), UserCharacterGsp: domain.Ptr(int64(900))},
		{UserID: 1, Created: at(4)},
	}
	got := GspHistory(matches, UsageFilter{UserID: 1}, 4)
	require.Len(t, got, 2)
	require.Equal(t, int64(100), got[0].Gsp)
	require.Equal(t, int64(300), got[1].Gsp)
	require.Len(t, GspHistory(matches, UsageFilter{UserID: 1}, 0), 3)
}

type staticUsers struct{ user *domain.User }

func (s staticUsers) Current() *domain.User { return s.user.Clone() }

func TestMatchFormValidationBlocksRequest(t *testing.T) {
	srv, cache := newLoadedMatchCache(t)
	notifier := NewRecordingNotifier(nil)
	form := NewMatchForm(zap.NewNop(), staticUsers{&domain.User{UserID: 7}}, cache, notifier)

	draft := form.NewDraft()
	draft.UserGsp = "1,000"
	_, _, err := form.Record(context.Background(), draft)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"Opponent character required.", "User GSP must be associated with a user character."}, verr.Warnings)
	toasts, _ := notifier.Drain()
	require.Len(t, toasts, 2)
	require.Equal(t, ToastWarning, toasts[0].Level)
	require.Empty(t, srv.callsTo("/match/create"))
}

func TestMatchFormRecord(t *testing.T) {
	srv, cache := newLoadedMatchCache(t)
	srv.handle("/match/create", func(body map[string]any) (int, any) {
		return ok(map[string]any{"matchId": 30})
	})
	user := &domain.User{UserID: 7, DefaultCharacterID: domain.Ptr(int64(4)), DefaultCharacterGsp: domain.Ptr(int64(1234567))}
	form := NewMatchForm(zap.NewNop(), staticUsers{user}, cache, nil)

	draft := form.NewDraft()
	require.Equal(t, int64(4), *draft.Match.UserCharacterID)
	require.Equal(t, "1,234,567", draft.UserGsp)

	draft.Match.OpponentCharacterID = 9
	draft.OpponentGsp = "2,000,000"
	draft.AddTag(domain.Tag{TagID: 1, TagName: "camp"})
	draft.AddTag(domain.Tag{TagID: 1, TagName: "camp"})

	created, next, err := form.Record(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, int64(30), created.MatchID)
	require.Equal(t, int64(2000000), *created.OpponentCharacterGsp)
	require.Len(t, created.MatchTags, 1)
	require.Equal(t, "1,234,567", next.UserGsp)
	require.Zero(t, next.Match.OpponentCharacterID)
	require.Empty(t, next.Tags)

	body := srv.callsTo("/match/create")[0].Body
	require.Equal(t, float64(1234567), body["userCharacterGsp"])
	require.Len(t, cache.Items(), 1)
}

func TestMatchFormRecordFailureToasts(t *testing.T) {
	srv, cache := newLoadedMatchCache(t)
	srv.handle("/match/create", func(map[string]any) (int, any) { return serverError() })
	notifier := NewRecordingNotifier(nil)
	form := NewMatchForm(zap.NewNop(), staticUsers{&domain.User{UserID: 7}}, cache, notifier)

	draft := form.NewDraft()
	draft.Match.OpponentCharacterID = 9
	_, _, err := form.Record(context.Background(), draft)
	require.Error(t, err)
	toasts, _ := notifier.Drain()
	require.Equal(t, []Toast{NewToast(ToastDanger, "Unable to save match.")}, toasts)
	require.Empty(t, cache.Items())
}

func TestProfileServiceUpdatePropagatesName(t *testing.T) {
	f := newSessionFixture(t)
	now := f.clock.Now()
	f.handleLogin(now.Add(15*time.Minute), now.Add(time.Hour))
	f.srv.handle("/user/update_profile", func(body map[string]any) (int, any) {
		return ok(map[string]any{"user": map[string]any{"userId": 5, "userName": body["userName"]}})
	})
	f.srv.handle("/match/getall", func(map[string]any) (int, any) {
		return ok(map[string]any{"matches": []domain.Match{{MatchID: 1, UserID: 5, UserName: "ness"}}})
	})
	_, err := f.manager.LogIn(context.Background(), domain.Credentials{Email: "ness@example.com", Password: "pk-fire"})
	require.NoError(t, err)

	matches := NewMatchCache(zap.NewNop(), f.client, nil, "/match", time.Second)
	require.NoError(t, matches.LoadAll(context.Background()))
	profile := NewProfileService(zap.NewNop(), f.manager, matches, nil, f.notifier)

	_, err = profile.UpdateProfile(context.Background(), domain.ProfileUpdate{UserName: "lucas"})
	require.NoError(t, err)
	require.Equal(t, "lucas", matches.Items()[0].UserName)
	toasts, _ := f.notifier.Drain()
	require.Equal(t, "User information updated!", toasts[len(toasts)-1].Message)
}

func TestProfileServiceRejectsDuplicateCharacter(t *testing.T) {
	f := newSessionFixture(t)
	now := f.clock.Now()
	f.handleLogin(now.Add(15*time.Minute), now.Add(time.Hour))
	_, err := f.manager.LogIn(context.Background(), domain.Credentials{Email: "ness@example.com", Password: "pk-fire"})
	require.NoError(t, err)
	profile := NewProfileService(zap.NewNop(), f.manager, nil, nil, f.notifier)

	_, err = profile.AddUserCharacter(context.Background(), domain.UserCharacterInput{CharacterID: 3})
	require.ErrorIs(t, err, ErrValidation)
	_, err = profile.AddUserCharacter(context.Background(), domain.UserCharacterInput{})
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, f.srv.callsTo("/user/character/create"))
}
