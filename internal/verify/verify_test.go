package verify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/cupbot/internal/models"
)

type fakeVerifier struct {
	mu         sync.Mutex
	handles    map[string]int64
	members    map[int64]models.Membership
	failHandle map[string]bool
	delay      map[int64]time.Duration
	inflight   int
	maxSeen    int
}

func (f *fakeVerifier) enter() func() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}
}

func (f *fakeVerifier) CheckMembership(ctx context.Context, _ string, identity int64) (models.Membership, error) {
	defer f.enter()()
	if d := f.delay[identity]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return models.MembershipUnknown, ctx.Err()
		}
	}
	if m, ok := f.members[identity]; ok {
		return m, nil
	}
	return models.MembershipLeft, nil
}

func (f *fakeVerifier) ResolveIdentity(_ context.Context, handle string) (int64, bool, error) {
	defer f.enter()()
	if f.failHandle[handle] {
		return 0, false, errors.New("flood")
	}
	id, ok := f.handles[handle]
	return id, ok, nil
}

func (f *fakeVerifier) LookupUser(context.Context, int64) (string, bool, error) {
	return "", false, nil
}

func id(v int64) *int64 { return &v }

func TestCheckRosterKeepsOrder(t *testing.T) {
	f := &fakeVerifier{
		handles:    map[string]int64{"alpha_h": 2, "beta_h": 3},
		members:    map[int64]models.Membership{1: models.MembershipCreator, 2: models.MembershipMember, 3: models.MembershipKicked},
		failHandle: map[string]bool{"delta_h": true},
		delay:      map[int64]time.Duration{1: 30 * time.Millisecond, 2: 10 * time.Millisecond},
	}
	players := []models.Player{
		{Nickname: "Cap", Handle: "cap", Identity: id(1), IsCaptain: true},
		{Nickname: "Alpha", Handle: "alpha_h"},
		{Nickname: "Beta", Handle: "beta_h"},
		{Nickname: "Gamma", Handle: "gamma_h"},
		{Nickname: "Delta", Handle: "delta_h"},
	}
	results := CheckRoster(context.Background(), f, "@cup", players, Options{Timeout: time.Second})

	want := []struct {
		nick    string
		outcome Outcome
	}{
		{"Cap", OutcomeSubscribed},
		{"Alpha", OutcomeSubscribed},
		{"Beta", OutcomeNotSubscribed},
		{"Gamma", OutcomeUnresolved},
		{"Delta", OutcomeFailed},
	}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, w := range want {
		if results[i].Player.Nickname != w.nick || results[i].Outcome != w.outcome {
			t.Fatalf("result %d = %s/%v, want %s/%v", i, results[i].Player.Nickname, results[i].Outcome, w.nick, w.outcome)
		}
	}
	if !errors.Is(results[4].Err, models.ErrAdapter) {
		t.Fatalf("failed lookup must be an adapter error, got %v", results[4].Err)
	}
	resolved := Players(results)
	if resolved[1].Identity == nil || *resolved[1].Identity != 2 {
		t.Fatalf("alpha identity not resolved: %+v", resolved[1])
	}
	if resolved[3].Identity != nil {
		t.Fatalf("unresolved handle must keep nil identity")
	}
}

func TestCheckRosterTimeoutIsPerEntry(t *testing.T) {
	f := &fakeVerifier{
		members: map[int64]models.Membership{1: models.MembershipMember, 2: models.MembershipMember},
		delay:   map[int64]time.Duration{1: time.Second},
	}
	players := []models.Player{
		{Nickname: "Slow", Identity: id(1), IsCaptain: true},
		{Nickname: "Fast", Identity: id(2)},
	}
	start := time.Now()
	results := CheckRoster(context.Background(), f, "@cup", players, Options{Timeout: 50 * time.Millisecond})
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("slow lookup was not bounded by its timeout")
	}
	if results[0].Outcome != OutcomeFailed || results[1].Outcome != OutcomeSubscribed {
		t.Fatalf("unexpected outcomes: %v %v", results[0].Outcome, results[1].Outcome)
	}
}

func TestCheckRosterParallelism(t *testing.T) {
	f := &fakeVerifier{delay: map[int64]time.Duration{}}
	var players []models.Player
	for i := int64(1); i <= 6; i++ {
		f.delay[i] = 20 * time.Millisecond
		players = append(players, models.Player{Nickname: "p", Identity: id(i)})
	}
	CheckRoster(context.Background(), f, "@cup", players, Options{Timeout: time.Second, Parallelism: 2})
	if f.maxSeen > 2 {
		t.Fatalf("max concurrent lookups = %d, want <= 2", f.maxSeen)
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	d.Remember(10, "@Alice")
	if got, ok := d.Identity("alice"); !ok || got != 10 {
		t.Fatalf("identity lookup = %d %v", got, ok)
	}
	d.Remember(10, "alice2")
	if _, ok := d.Identity("alice"); ok {
		t.Fatal("stale handle still resolves")
	}
	if h, ok := d.Handle(10); !ok || h != "alice2" {
		t.Fatalf("handle = %q %v", h, ok)
	}
	d.Remember(11, "")
	if _, ok := d.Handle(11); !ok || d.Len() != 2 {
		t.Fatal("sender without handle must still be known")
	}
}

type fakeAPI struct {
	role  tele.MemberStatus
	err   error
	chats map[string]*tele.Chat
	block chan struct{}
}

func (f *fakeAPI) ChatMemberOf(_, _ tele.Recipient) (*tele.ChatMember, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &tele.ChatMember{Role: f.role}, nil
}

func (f *fakeAPI) ChatByUsername(name string) (*tele.Chat, error) {
	if c, ok := f.chats[name]; ok {
		return c, nil
	}
	return nil, &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
}

func (f *fakeAPI) ChatByID(int64) (*tele.Chat, error) {
	return nil, &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
}

func TestTelegramMembership(t *testing.T) {
	cases := []struct {
		name string
		api  *fakeAPI
		want models.Membership
		err  bool
	}{
		{name: "member", api: &fakeAPI{role: tele.Member}, want: models.MembershipMember},
		{name: "creator", api: &fakeAPI{role: tele.Creator}, want: models.MembershipCreator},
		{name: "left", api: &fakeAPI{role: tele.Left}, want: models.MembershipLeft},
		{name: "not found", api: &fakeAPI{err: &tele.Error{Code: 400, Description: "Bad Request: user not found"}}, want: models.MembershipLeft},
		{name: "failure", api: &fakeAPI{err: errors.New("connection reset")}, want: models.MembershipUnknown, err: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewTelegram(tc.api, nil, time.Second)
			got, err := v.CheckMembership(context.Background(), "@cup", 42)
			if (err != nil) != tc.err {
				t.Fatalf("err = %v", err)
			}
			if err != nil && !errors.Is(err, models.ErrAdapter) {
				t.Fatalf("expected adapter error, got %v", err)
			}
			if got != tc.want {
				t.Fatalf("membership = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTelegramMembershipTimeout(t *testing.T) {
	api := &fakeAPI{role: tele.Member, block: make(chan struct{})}
	defer close(api.block)
	v := NewTelegram(api, nil, 20*time.Millisecond)
	if _, err := v.CheckMembership(context.Background(), "@cup", 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestTelegramResolveIdentity(t *testing.T) {
	dir := NewDirectory()
	dir.Remember(7, "seen_user")
	api := &fakeAPI{chats: map[string]*tele.Chat{
		"@public_user": {ID: 9, Type: tele.ChatPrivate, Username: "public_user"},
		"@somechannel": {ID: -100, Type: tele.ChatChannel},
	}}
	v := NewTelegram(api, dir, time.Second)
	ctx := context.Background()

	if got, ok, err := v.ResolveIdentity(ctx, "@Seen_User"); err != nil || !ok || got != 7 {
		t.Fatalf("directory hit = %d %v %v", got, ok, err)
	}
	if got, ok, err := v.ResolveIdentity(ctx, "public_user"); err != nil || !ok || got != 9 {
		t.Fatalf("api hit = %d %v %v", got, ok, err)
	}
	if _, ok, err := v.ResolveIdentity(ctx, "somechannel"); err != nil || ok {
		t.Fatalf("channel must not resolve to a user: %v %v", ok, err)
	}
	if _, ok, err := v.ResolveIdentity(ctx, "ghost"); err != nil || ok {
		t.Fatalf("unknown handle = %v %v", ok, err)
	}
	if h, ok, err := v.LookupUser(ctx, 9); err != nil || !ok || h != "public_user" {
		t.Fatalf("resolved user must be remembered: %q %v %v", h, ok, err)
	}
	if _, ok, err := v.LookupUser(ctx, 555); err != nil || ok {
		t.Fatalf("unknown user = %v %v", ok, err)
	}
}
