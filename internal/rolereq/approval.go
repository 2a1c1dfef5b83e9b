package rolereq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xunintzx/antlove/internal/alert"
	"github.com/xunintzx/antlove/internal/directory"
)

// ErrNotFound means no pending request matches the request id. A second
// resolution of an already-resolved request reports this.
var ErrNotFound = errors.New("rolereq: request not found")

// nicknameFor renders the post-approval member nickname.
func nicknameFor(rpName string) string {
	return "MEM | " + rpName
}

// Resolver applies the admin approve/deny transitions to pending
// requests.
type Resolver struct {
	dir     directory.Service
	pending *Pending
	alerts  alert.Notifier
	// InitialRoleID, when set, is revoked from the member on approval.
	initialRoleID string
	logger        *slog.Logger
}

// NewResolver wires the resolver. initialRoleID and alerts may be empty.
func NewResolver(dir directory.Service, pending *Pending, alerts alert.Notifier, initialRoleID string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		dir:           dir,
		pending:       pending,
		alerts:        alerts,
		initialRoleID: initialRoleID,
		logger:        logger,
	}
}

// Approve grants the requested role and finalizes the request. The grant
// is the essential step: if it fails the request stays pending for a
// retry. Revoking the initial role, renaming the member and the direct
// notification are best effort. The review message at (reviewChannelID,
// reviewMessageID) is rewritten to the approval summary, dropping its
// buttons.
func (r *Resolver) Approve(ctx context.Context, requestID, reviewChannelID, reviewMessageID string, actor directory.Member) (*Request, error) {
	req, ok := r.pending.ByID(requestID)
	if !ok {
		return nil, ErrNotFound
	}

	member, err := r.dir.Member(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("rolereq: approve: member %s: %w", req.UserID, err)
	}
	role, err := r.dir.Role(ctx, req.Role.ID)
	if err != nil {
		return nil, fmt.Errorf("rolereq: approve: role %s: %w", req.Role.ID, err)
	}

	reason := "role request " + req.ID + " approved by " + actor.Username
	if err := r.dir.GrantRole(ctx, member.ID, role.ID, reason); err != nil {
		return nil, fmt.Errorf("rolereq: approve: grant %s: %w", role.ID, err)
	}

	if r.initialRoleID != "" && member.HasRole(r.initialRoleID) {
		if err := r.dir.RevokeRole(ctx, member.ID, r.initialRoleID, reason); err != nil {
			r.logger.Warn("failed to revoke initial role", "user", member.ID, "error", err)
		}
	}
	if err := r.dir.SetNickname(ctx, member.ID, nicknameFor(req.RPName), reason); err != nil {
		r.logger.Warn("failed to set nickname", "user", member.ID, "error", err)
	}

	if !r.pending.Remove(req.ID) {
		// Lost the race to a concurrent resolution after the grant; the
		// grant is idempotent, so report the loss and stop.
		return nil, ErrNotFound
	}

	summary := directory.Notice{
		Title: "✅ Request Approved",
		Description: fmt.Sprintf("<@%s> was granted the **%s** role.\n**Approved by:** <@%s>",
			req.UserID, role.Name, actor.ID),
		Color:  0x2ECC71,
		Footer: "Request ID: " + req.ID,
	}
	if err := r.dir.Edit(ctx, reviewChannelID, reviewMessageID, summary); err != nil {
		r.logger.Warn("failed to edit review message", "request", req.ID, "error", err)
	}
	if err := r.dir.Direct(ctx, req.UserID, directory.Notice{
		Title:       "✅ Role Request Approved",
		Description: fmt.Sprintf("Your request for the **%s** role was approved. Welcome aboard!", role.Name),
		Color:       0x2ECC71,
	}); err != nil {
		r.logger.Debug("could not notify requester", "user", req.UserID, "error", err)
	}

	r.logger.Info("request approved", "request", req.ID, "user", req.UserID, "role", role.Name, "by", actor.ID)
	r.notify(ctx, "request-approved", fmt.Sprintf("request %s approved by %s", req.ID, actor.Username))
	return req, nil
}

// Deny finalizes the request without granting anything. Once the record
// exists denial always completes the removal, even when the member or
// role can no longer be resolved.
func (r *Resolver) Deny(ctx context.Context, requestID, reviewChannelID, reviewMessageID string, actor directory.Member) (*Request, error) {
	req, ok := r.pending.ByID(requestID)
	if !ok {
		return nil, ErrNotFound
	}
	if !r.pending.Remove(req.ID) {
		return nil, ErrNotFound
	}

	summary := directory.Notice{
		Title: "❌ Request Denied",
		Description: fmt.Sprintf("<@%s>'s request for the **%s** role was denied.\n**Denied by:** <@%s>",
			req.UserID, req.Role.Name, actor.ID),
		Color:  0xE74C3C,
		Footer: "Request ID: " + req.ID,
	}
	if err := r.dir.Edit(ctx, reviewChannelID, reviewMessageID, summary); err != nil {
		r.logger.Warn("failed to edit review message", "request", req.ID, "error", err)
	}
	if err := r.dir.Direct(ctx, req.UserID, directory.Notice{
		Title:       "❌ Role Request Denied",
		Description: fmt.Sprintf("Your request for the **%s** role was denied. You may submit a new request.", req.Role.Name),
		Color:       0xE74C3C,
	}); err != nil {
		r.logger.Debug("could not notify requester", "user", req.UserID, "error", err)
	}

	r.logger.Info("request denied", "request", req.ID, "user", req.UserID, "by", actor.ID)
	r.notify(ctx, "request-denied", fmt.Sprintf("request %s denied by %s", req.ID, actor.Username))
	return req, nil
}

func (r *Resolver) notify(ctx context.Context, event, text string) {
	if r.alerts == nil {
		return
	}
	if err := r.alerts.Notify(ctx, event, text); err != nil {
		r.logger.Warn("alert delivery failed", "event", event, "error", err)
	}
}
