package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/naming"
)

// ErrBadID means a user-typed identifier did not parse as a member id.
var ErrBadID = errors.New("moderation: invalid user id")

// Dispatcher runs the stateless moderation actions. Each method is one
// permission-gated transaction: parse the target, perform a single
// directory mutation, report.
type Dispatcher struct {
	dir      directory.Service
	warnings *WarningLog
	logger   *slog.Logger
}

// NewDispatcher wires the dispatcher.
func NewDispatcher(dir directory.Service, warnings *WarningLog, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{dir: dir, warnings: warnings, logger: logger}
}

// Ban bans the target, identified by mention or raw id.
func (d *Dispatcher) Ban(ctx context.Context, actor directory.Member, target, reason string) (string, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return "", ErrBadID
	}
	if err := d.dir.Ban(ctx, id, auditReason(actor, reason)); err != nil {
		return "", fmt.Errorf("moderation: ban %s: %w", id, err)
	}
	d.logger.Info("member banned", "user", id, "by", actor.ID, "reason", reason)
	return id, nil
}

// Unban lifts a ban on the target id.
func (d *Dispatcher) Unban(ctx context.Context, actor directory.Member, target, reason string) (string, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return "", ErrBadID
	}
	if err := d.dir.Unban(ctx, id, auditReason(actor, reason)); err != nil {
		return "", fmt.Errorf("moderation: unban %s: %w", id, err)
	}
	d.logger.Info("member unbanned", "user", id, "by", actor.ID)
	return id, nil
}

// EditRole grants or revokes a role on the target.
func (d *Dispatcher) EditRole(ctx context.Context, actor directory.Member, target, roleID string, grant bool) (directory.Role, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return directory.Role{}, ErrBadID
	}
	role, err := d.dir.Role(ctx, naming.StripMention(roleID))
	if err != nil {
		return directory.Role{}, fmt.Errorf("moderation: role %s: %w", roleID, err)
	}

	reason := auditReason(actor, "role edit")
	if grant {
		err = d.dir.GrantRole(ctx, id, role.ID, reason)
	} else {
		err = d.dir.RevokeRole(ctx, id, role.ID, reason)
	}
	if err != nil {
		return directory.Role{}, fmt.Errorf("moderation: edit role %s on %s: %w", role.ID, id, err)
	}
	d.logger.Info("role edited", "user", id, "role", role.Name, "grant", grant, "by", actor.ID)
	return role, nil
}

// Warn records a warning and notifies the target; an unreachable target
// does not undo the record.
func (d *Dispatcher) Warn(ctx context.Context, actor directory.Member, target, reason string) (Warning, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return Warning{}, ErrBadID
	}
	w, err := d.warnings.Add(id, reason, actor.ID)
	if err != nil {
		return Warning{}, err
	}
	if err := d.dir.Direct(ctx, id, directory.Notice{
		Title:       "⚠️ Warning",
		Description: fmt.Sprintf("You have received a warning.\n**Reason:** %s", reason),
		Color:       0xF1C40F,
		Footer:      "Warning ID: " + w.ID,
	}); err != nil {
		d.logger.Debug("could not notify warned member", "user", id, "error", err)
	}
	d.logger.Info("warning recorded", "user", id, "warning", w.ID, "by", actor.ID)
	return w, nil
}

// RemoveWarning deletes one warning by id. Reports whether it existed.
func (d *Dispatcher) RemoveWarning(target, warningID string) (bool, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return false, ErrBadID
	}
	return d.warnings.Remove(id, warningID)
}

// ClearWarnings drops every warning on record for the target and returns
// how many were removed.
func (d *Dispatcher) ClearWarnings(actor directory.Member, target string) (int, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return 0, ErrBadID
	}
	n, err := d.warnings.Clear(id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.logger.Info("warnings cleared", "user", id, "count", n, "by", actor.ID)
	}
	return n, nil
}

// ListWarnings renders a user's warnings as a notice for the invoking
// admin.
func (d *Dispatcher) ListWarnings(target string) (directory.Notice, error) {
	id, ok := naming.ParseID(target)
	if !ok {
		return directory.Notice{}, ErrBadID
	}
	warnings, err := d.warnings.List(id)
	if err != nil {
		return directory.Notice{}, err
	}

	n := directory.Notice{
		Title: "⚠️ Warnings",
		Color: 0xF1C40F,
	}
	if len(warnings) == 0 {
		n.Description = fmt.Sprintf("<@%s> has no warnings.", id)
		return n, nil
	}
	n.Description = fmt.Sprintf("<@%s> has %d warning(s).", id, len(warnings))
	for i, w := range warnings {
		n.Fields = append(n.Fields, directory.Field{
			Name:  fmt.Sprintf("#%d · %s", i+1, w.Date.Format("02/01/2006 15:04")),
			Value: fmt.Sprintf("%s\nModerator: <@%s>\nID: `%s`", w.Reason, w.Moderator, w.ID),
		})
	}
	return n, nil
}

// ComposeEmbed posts an authored notice to a channel. color is a hex
// string with or without a leading #; empty defaults to neutral grey.
func (d *Dispatcher) ComposeEmbed(ctx context.Context, channelID, title, description, color string) error {
	c, err := parseColor(color)
	if err != nil {
		return err
	}
	if _, err := d.dir.Send(ctx, channelID, directory.Notice{
		Title:       title,
		Description: description,
		Color:       c,
	}); err != nil {
		return fmt.Errorf("moderation: post embed: %w", err)
	}
	return nil
}

func parseColor(s string) (int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return 0x95A5A6, nil
	}
	c, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("moderation: invalid color %q", s)
	}
	return int(c), nil
}

func auditReason(actor directory.Member, reason string) string {
	if reason == "" {
		return "by " + actor.Username
	}
	return reason + " (by " + actor.Username + ")"
}
