package telegram

import (
	"testing"

	"github.com/m3rciful/cupbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/register", commands.Command{Handler: noop, Description: "Регистрация", Aliases: []string{"Регистрация"}})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "no slash"})

	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{text: "/start", want: "/start", ok: true},
		{text: "start", want: "/start", ok: true},
		{text: "/start@cupbot ref", want: "/start", ok: true},
		{text: "регистрация", want: "/register", ok: true},
		{text: " Регистрация ", want: "/register", ok: true},
		{text: "Dragons", ok: false},
		{text: "", ok: false},
	}
	for _, tc := range cases {
		key, _, ok := reg.LookupCommand(tc.text)
		if ok != tc.ok || key != tc.want {
			t.Errorf("LookupCommand(%q) = %q %v, want %q %v", tc.text, key, ok, tc.want, tc.ok)
		}
	}
	if len(reg.Commands()) != 2 {
		t.Fatalf("commands = %d", len(reg.Commands()))
	}
}

func TestMatchCallback(t *testing.T) {
	reg := NewRegistry()
	for _, p := range []string{"admin_*", "admin_teams_*", "approve_team_*", "menu"} {
		if err := reg.RegisterCallback(p, noop); err != nil {
			t.Fatalf("register %s: %v", p, err)
		}
	}
	if err := reg.RegisterCallback("menu", noop); err == nil {
		t.Fatal("duplicate registration must fail")
	}
	if err := reg.RegisterCallback("*", noop); err == nil {
		t.Fatal("catch-all pattern must be rejected")
	}

	cases := []struct {
		cb   tele.Callback
		want string
		ok   bool
	}{
		{cb: tele.Callback{Data: "admin_panel"}, want: "admin_*", ok: true},
		{cb: tele.Callback{Data: "admin_teams_list_pending"}, want: "admin_teams_*", ok: true},
		{cb: tele.Callback{Data: "approve_team_pending_4"}, want: "approve_team_*", ok: true},
		{cb: tele.Callback{Unique: "menu", Data: "x"}, want: "menu", ok: true},
		{cb: tele.Callback{Data: "\fmenu|x"}, want: "menu", ok: true},
		{cb: tele.Callback{Data: "view_team_pending_4"}, ok: false},
	}
	for _, tc := range cases {
		cb := tc.cb
		name, h, ok := reg.MatchCallback(&cb)
		if ok != tc.ok || (ok && (name != tc.want || h == nil)) {
			t.Errorf("MatchCallback(%+v) = %q %v, want %q %v", tc.cb, name, ok, tc.want, tc.ok)
		}
	}
}
