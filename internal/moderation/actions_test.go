package moderation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/xunintzx/antlove/internal/directory"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *directory.Fake) {
	t.Helper()
	fake := directory.NewFake()
	fake.Roles["r1"] = directory.Role{ID: "r1", Name: "Citizen"}
	fake.Members["111"] = directory.Member{ID: "111", Username: "alice"}

	log := NewWarningLog(filepath.Join(t.TempDir(), "warnings.json"))
	d := NewDispatcher(fake, log, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return d, fake
}

func mod() directory.Member {
	return directory.Member{ID: "999", Username: "mod"}
}

func TestBanParsesMention(t *testing.T) {
	d, fake := newTestDispatcher(t)

	id, err := d.Ban(context.Background(), mod(), "<@!111>", "spam")
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if id != "111" {
		t.Errorf("banned id = %q, want 111", id)
	}
	if len(fake.Banned) != 1 || fake.Banned[0] != "111" {
		t.Errorf("Banned = %v", fake.Banned)
	}
}

func TestBanRejectsGarbage(t *testing.T) {
	d, fake := newTestDispatcher(t)

	if _, err := d.Ban(context.Background(), mod(), "not-an-id", "spam"); !errors.Is(err, ErrBadID) {
		t.Errorf("Ban = %v, want ErrBadID", err)
	}
	if len(fake.Banned) != 0 {
		t.Error("no ban should be issued for an unparseable target")
	}
}

func TestBanFailureSurfaces(t *testing.T) {
	d, fake := newTestDispatcher(t)
	fake.Fail["Ban"] = errors.New("missing permission")

	if _, err := d.Ban(context.Background(), mod(), "111", "spam"); err == nil {
		t.Error("Ban should surface the directory failure")
	}
}

func TestUnban(t *testing.T) {
	d, fake := newTestDispatcher(t)

	if _, err := d.Unban(context.Background(), mod(), "111", ""); err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if len(fake.Unbans) != 1 || fake.Unbans[0] != "111" {
		t.Errorf("Unbans = %v", fake.Unbans)
	}
}

func TestEditRole(t *testing.T) {
	d, fake := newTestDispatcher(t)

	role, err := d.EditRole(context.Background(), mod(), "111", "<@&r1>", true)
	if err != nil {
		t.Fatalf("EditRole grant: %v", err)
	}
	if role.Name != "Citizen" {
		t.Errorf("role = %q", role.Name)
	}
	if !fake.Members["111"].HasRole("r1") {
		t.Error("role not granted")
	}

	if _, err := d.EditRole(context.Background(), mod(), "111", "r1", false); err != nil {
		t.Fatalf("EditRole revoke: %v", err)
	}
	if fake.Members["111"].HasRole("r1") {
		t.Error("role not revoked")
	}
}

func TestEditRoleUnknownRole(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if _, err := d.EditRole(context.Background(), mod(), "111", "r-gone", true); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("EditRole = %v, want ErrNotFound", err)
	}
}

func TestWarnRecordsAndNotifies(t *testing.T) {
	d, fake := newTestDispatcher(t)

	w, err := d.Warn(context.Background(), mod(), "111", "spam")
	if err != nil {
		t.Fatalf("Warn: %v", err)
	}
	if w.Reason != "spam" || w.Moderator != "999" {
		t.Errorf("warning = %+v", w)
	}
	if len(fake.Directs) != 1 || fake.Directs[0].UserID != "111" {
		t.Errorf("target not notified: %+v", fake.Directs)
	}
}

func TestWarnSurvivesClosedDMs(t *testing.T) {
	d, fake := newTestDispatcher(t)
	fake.Fail["Direct"] = errors.New("dms closed")

	if _, err := d.Warn(context.Background(), mod(), "111", "spam"); err != nil {
		t.Fatalf("Warn: %v (notification failure must be swallowed)", err)
	}
	notice, err := d.ListWarnings("111")
	if err != nil {
		t.Fatalf("ListWarnings: %v", err)
	}
	if len(notice.Fields) != 1 {
		t.Errorf("warning not recorded: %+v", notice)
	}
}

func TestClearWarnings(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if _, err := d.Warn(context.Background(), mod(), "111", "spam"); err != nil {
		t.Fatalf("Warn: %v", err)
	}
	if _, err := d.Warn(context.Background(), mod(), "111", "more spam"); err != nil {
		t.Fatalf("Warn: %v", err)
	}

	n, err := d.ClearWarnings(mod(), "<@111>")
	if err != nil {
		t.Fatalf("ClearWarnings: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared = %d, want 2", n)
	}
	notice, err := d.ListWarnings("111")
	if err != nil {
		t.Fatalf("ListWarnings: %v", err)
	}
	if len(notice.Fields) != 0 {
		t.Errorf("warnings remain after clear: %+v", notice.Fields)
	}

	if _, err := d.ClearWarnings(mod(), "garbage"); !errors.Is(err, ErrBadID) {
		t.Errorf("ClearWarnings = %v, want ErrBadID", err)
	}
}

func TestComposeEmbed(t *testing.T) {
	d, fake := newTestDispatcher(t)

	if err := d.ComposeEmbed(context.Background(), "general", "Rules", "Be kind.", "#FF0000"); err != nil {
		t.Fatalf("ComposeEmbed: %v", err)
	}
	sent, ok := fake.LastSent()
	if !ok || sent.ChannelID != "general" {
		t.Fatalf("embed not sent: %+v", sent)
	}
	if sent.Notice.Color != 0xFF0000 {
		t.Errorf("color = %#x, want ff0000", sent.Notice.Color)
	}

	if err := d.ComposeEmbed(context.Background(), "general", "x", "y", "not-hex"); err == nil {
		t.Error("invalid color should fail")
	}
}
