package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xunintzx/antlove/internal/captcha"
	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/moderation"
	"github.com/xunintzx/antlove/internal/panel"
	"github.com/xunintzx/antlove/internal/rolereq"
	"github.com/xunintzx/antlove/internal/ticket"
)

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	switch customID {
	case panel.TicketCreateID:
		b.openTicket(s, i)
		return
	case panel.RoleRequestID:
		b.beginRoleRequest(s, i)
		return
	case panel.AdminBanID:
		b.openAdminModal(s, i, panel.BanModalID, "Ban a member", banModalFields())
		return
	case panel.AdminRolesID:
		b.openAdminModal(s, i, panel.RolesModalID, "Edit a member's roles", rolesModalFields())
		return
	case panel.AdminWarningsID:
		b.openAdminModal(s, i, panel.WarningsModalID, "Warn a member", warningsModalFields())
		return
	case panel.AdminEmbedID:
		b.openAdminModal(s, i, panel.EmbedModalID, "Compose an embed", embedModalFields())
		return
	}

	if ticketID, ok := panel.ParseTicketClose(customID); ok {
		b.closeTicket(s, i, ticketID)
		return
	}
	if userID, nonce, option, ok := panel.ParseCaptchaOption(customID); ok {
		b.answerChallenge(s, i, userID, nonce, option)
		return
	}
	if requestID, ok := panel.ParseRequestApprove(customID); ok {
		b.resolveRequest(s, i, requestID, true)
		return
	}
	if requestID, ok := panel.ParseRequestDeny(customID); ok {
		b.resolveRequest(s, i, requestID, false)
		return
	}
	b.logger.Warn("unknown component", "custom_id", customID)
}

func (b *Bot) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()

	if userID, ok := panel.ParseRoleForm(data.CustomID); ok {
		b.submitRoleForm(s, i, data, userID)
		return
	}

	switch data.CustomID {
	case panel.BanModalID:
		b.submitBanModal(s, i, data)
	case panel.RolesModalID:
		b.submitRolesModal(s, i, data)
	case panel.WarningsModalID:
		b.submitWarningsModal(s, i, data)
	case panel.EmbedModalID:
		b.submitEmbedModal(s, i, data)
	default:
		b.logger.Warn("unknown modal", "custom_id", data.CustomID)
	}
}

// --- tickets ---

func (b *Bot) openTicket(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := deferEphemeral(s, i); err != nil {
		b.logger.Warn("interaction ack failed", "error", err)
		return
	}

	ch, err := b.deps.Tickets.Open(context.Background(), b.invoker(i))
	switch {
	case errors.Is(err, ticket.ErrAlreadyOpen):
		followUp(s, i, "You already have an open ticket.")
	case errors.Is(err, directory.ErrCategoryNotFound):
		followUp(s, i, "The ticket category is not configured. Please contact an administrator.")
	case err != nil:
		b.logger.Error("ticket open failed", "user", interactionUserID(i), "error", err)
		followUp(s, i, "Could not create your ticket. Please try again later.")
	default:
		followUp(s, i, fmt.Sprintf("Your ticket is ready: <#%s>", ch.ID))
	}
}

func (b *Bot) closeTicket(s *discordgo.Session, i *discordgo.InteractionCreate, ticketID string) {
	if !isAdmin(i) {
		replyEphemeral(s, i, "Only administrators can close tickets.")
		return
	}
	// History replay can take longer than the 3 second response window.
	if err := deferEphemeral(s, i); err != nil {
		b.logger.Warn("interaction ack failed", "error", err)
		return
	}

	res, err := b.deps.Tickets.Close(context.Background(), ticketID, b.invoker(i))
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		followUp(s, i, "No ticket record found for this channel.")
	case err != nil:
		b.logger.Error("ticket close failed", "ticket", ticketID, "error", err)
		followUp(s, i, "Could not close the ticket: "+err.Error())
	default:
		followUp(s, i, fmt.Sprintf("Ticket closed. %d messages archived; channel deletes in %s.",
			res.EntryCount, res.GraceDelay))
	}
}

// --- role request: challenge ---

func (b *Bot) beginRoleRequest(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	ch, err := b.deps.Requests.Begin(context.Background(), userID)
	switch {
	case errors.Is(err, rolereq.ErrPendingExists):
		replyEphemeral(s, i, "You already have a request awaiting review.")
		return
	case errors.Is(err, rolereq.ErrNoRoles):
		replyEphemeral(s, i, "No roles are available to request right now.")
		return
	case err != nil:
		b.logger.Error("role request begin failed", "user", userID, "error", err)
		replyEphemeral(s, i, "Could not start your request. Please try again later.")
		return
	}

	if err := replyEmbedEphemeral(s, i, challengeEmbed(ch), challengeButtons(ch, false)); err != nil {
		b.logger.Warn("challenge render failed", "user", userID, "error", err)
		return
	}
	b.putSession(userID, &challengeSession{roles: ch.Roles, interaction: i.Interaction})

	// On expiry the buttons are disabled in place; no message is sent.
	orig := i.Interaction
	b.deps.Scheduler.After("captcha-expire:"+userID, b.cfg.CaptchaTTL(), func() {
		if _, live := b.dropSession(userID); !live {
			return
		}
		disabled := challengeButtons(ch, true)
		_, err := s.InteractionResponseEdit(orig, &discordgo.WebhookEdit{Components: &disabled})
		if err != nil {
			b.logger.Debug("challenge disable failed", "user", userID, "error", err)
		}
	})
}

func (b *Bot) answerChallenge(s *discordgo.Session, i *discordgo.InteractionCreate, userID, nonce string, option int) {
	if interactionUserID(i) != userID {
		replyEphemeral(s, i, "This challenge is not yours.")
		return
	}

	ch, correct, err := b.deps.Requests.Answer(userID, nonce, option)
	if errors.Is(err, captcha.ErrReplaced) {
		// A stale message from a superseded attempt. The live challenge and
		// its session stay intact; retire this message in place.
		updateMessage(s, i, &discordgo.MessageEmbed{
			Title:       "🔐 Verification",
			Description: "This challenge is no longer active. Use your newest challenge message.",
			Color:       0x95A5A6,
		}, []discordgo.MessageComponent{})
		return
	}
	if err != nil {
		b.deps.Scheduler.Cancel("captcha-expire:" + userID)
		b.dropSession(userID)
		if errors.Is(err, captcha.ErrExpired) {
			updateMessage(s, i, &discordgo.MessageEmbed{
				Title:       "⏱️ Verification Expired",
				Description: "This challenge has expired. Click the request button to try again.",
				Color:       0x95A5A6,
			}, []discordgo.MessageComponent{})
			return
		}
		replyEphemeral(s, i, "This challenge is no longer active. Click the request button to try again.")
		return
	}
	b.deps.Scheduler.Cancel("captcha-expire:" + userID)

	if !correct {
		sess, _ := b.dropSession(userID)
		updateMessage(s, i, &discordgo.MessageEmbed{
			Title:       "❌ Verification Failed",
			Description: "Wrong code. Click the request button to try again with a new challenge.",
			Color:       0xE74C3C,
		}, []discordgo.MessageComponent{})
		b.scheduleChallengeCleanup(s, sess, userID)
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   panel.RoleFormID(userID),
			Title:      "Role Request",
			Components: roleFormFields(ch.Roles),
		},
	}); err != nil {
		b.logger.Warn("form open failed", "user", userID, "error", err)
		return
	}
	sess, _ := b.getSession(userID)
	b.scheduleChallengeCleanup(s, sess, userID)
}

// scheduleChallengeCleanup deletes the challenge message after the
// cleanup delay. The message may already be gone; that is fine.
func (b *Bot) scheduleChallengeCleanup(s *discordgo.Session, sess *challengeSession, userID string) {
	if sess == nil || sess.interaction == nil {
		return
	}
	orig := sess.interaction
	b.deps.Scheduler.After("captcha-clean:"+userID, b.cfg.CaptchaCleanupDelay(), func() {
		if err := s.InteractionResponseDelete(orig); err != nil {
			b.logger.Debug("challenge cleanup", "user", userID, "error", err)
		}
	})
}

func challengeEmbed(ch *captcha.Challenge) *discordgo.MessageEmbed {
	remaining := int(time.Until(ch.ExpiresAt).Round(time.Second).Seconds())
	return &discordgo.MessageEmbed{
		Title: "🔐 Verification",
		Description: fmt.Sprintf("Click the button showing exactly this code:\n\n**`%s`**\n\nYou have %d seconds.",
			ch.CorrectCode(), remaining),
		Color: 0x9B59B6,
	}
}

func challengeButtons(ch *captcha.Challenge, disabled bool) []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for idx, o := range ch.Options {
		row.Components = append(row.Components, discordgo.Button{
			Label:    o.Code,
			Style:    discordgo.SecondaryButton,
			CustomID: panel.CaptchaOptionID(ch.UserID, ch.Nonce, idx),
			Disabled: disabled,
		})
	}
	return []discordgo.MessageComponent{row}
}

// --- role request: form ---

const (
	formFieldRecruiter = "recruiter"
	formFieldGameID    = "game_id"
	formFieldRPName    = "rp_name"
	formFieldSelection = "role_number"
)

func roleFormFields(roles []directory.Role) []discordgo.MessageComponent {
	var list strings.Builder
	for n, r := range roles {
		fmt.Fprintf(&list, "%d. %s  ", n+1, r.Name)
	}
	placeholder := strings.TrimSpace(list.String())
	if len(placeholder) > 100 {
		placeholder = placeholder[:100]
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
			CustomID: formFieldRecruiter, Label: "Who recruited you?",
			Style: discordgo.TextInputShort, Required: true, MaxLength: rolereq.MaxRecruiterLen,
		}}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
			CustomID: formFieldGameID, Label: "Your in-game ID",
			Style: discordgo.TextInputShort, Required: true, MaxLength: rolereq.MaxGameIDLen,
		}}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
			CustomID: formFieldRPName, Label: "Your roleplay name",
			Style: discordgo.TextInputShort, Required: true, MaxLength: rolereq.MaxRPNameLen,
		}}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
			CustomID: formFieldSelection, Label: fmt.Sprintf("Role number (1-%d)", len(roles)),
			Placeholder: placeholder,
			Style:       discordgo.TextInputShort, Required: true, MaxLength: rolereq.MaxSelectionLen,
		}}},
	}
}

func (b *Bot) submitRoleForm(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData, userID string) {
	if interactionUserID(i) != userID {
		replyEphemeral(s, i, "This form is not yours.")
		return
	}
	sess, ok := b.dropSession(userID)
	if !ok {
		replyEphemeral(s, i, "Your verification session has expired. Click the request button to start over.")
		return
	}

	form := rolereq.Form{
		Recruiter: modalValue(data, formFieldRecruiter),
		GameID:    modalValue(data, formFieldGameID),
		RPName:    modalValue(data, formFieldRPName),
		Selection: modalValue(data, formFieldSelection),
	}
	req, err := b.deps.Requests.Submit(context.Background(), b.invoker(i), sess.roles, form)
	switch {
	case errors.Is(err, rolereq.ErrNotANumber):
		replyEphemeral(s, i, "The role selection must be a number.")
	case errors.Is(err, rolereq.ErrInvalidRole):
		replyEphemeral(s, i, "Invalid role number.")
	case errors.Is(err, rolereq.ErrFieldTooLong):
		replyEphemeral(s, i, "One of the fields is too long.")
	case errors.Is(err, rolereq.ErrPendingExists):
		replyEphemeral(s, i, "You already have a request awaiting review.")
	case err != nil:
		b.logger.Error("role request submit failed", "user", userID, "error", err)
		replyEphemeral(s, i, "Could not submit your request. Please try again later.")
	default:
		replyEphemeral(s, i, fmt.Sprintf("Your request for **%s** was submitted for review.", req.Role.Name))
	}
}

// --- role request: resolution ---

func (b *Bot) resolveRequest(s *discordgo.Session, i *discordgo.InteractionCreate, requestID string, approve bool) {
	if !isAdmin(i) {
		replyEphemeral(s, i, "Only administrators can resolve requests.")
		return
	}
	if err := deferEphemeral(s, i); err != nil {
		b.logger.Warn("interaction ack failed", "error", err)
		return
	}

	var req *rolereq.Request
	var err error
	if approve {
		req, err = b.deps.Resolver.Approve(context.Background(), requestID, i.ChannelID, i.Message.ID, b.invoker(i))
	} else {
		req, err = b.deps.Resolver.Deny(context.Background(), requestID, i.ChannelID, i.Message.ID, b.invoker(i))
	}

	switch {
	case errors.Is(err, rolereq.ErrNotFound):
		followUp(s, i, "Request not found. It may already be resolved.")
	case errors.Is(err, directory.ErrNotFound):
		followUp(s, i, "The member or role could not be found.")
	case err != nil:
		b.logger.Error("request resolution failed", "request", requestID, "error", err)
		followUp(s, i, "Could not resolve the request: "+err.Error())
	case approve:
		followUp(s, i, fmt.Sprintf("Approved <@%s> for **%s**.", req.UserID, req.Role.Name))
	default:
		followUp(s, i, fmt.Sprintf("Denied <@%s>'s request.", req.UserID))
	}
}

// --- admin panel modals ---

func (b *Bot) openAdminModal(s *discordgo.Session, i *discordgo.InteractionCreate, modalID, title string, fields []discordgo.MessageComponent) {
	if !isAdmin(i) {
		replyEphemeral(s, i, "Only administrators can use the panel.")
		return
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modalID,
			Title:      title,
			Components: fields,
		},
	})
	if err != nil {
		b.logger.Warn("modal open failed", "modal", modalID, "error", err)
	}
}

const (
	modalFieldUser    = "user"
	modalFieldReason  = "reason"
	modalFieldRole    = "role"
	modalFieldAction  = "action"
	modalFieldChannel = "channel"
	modalFieldTitle   = "title"
	modalFieldBody    = "body"
	modalFieldColor   = "color"
)

func shortInput(id, label string, required bool) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
		CustomID: id, Label: label, Style: discordgo.TextInputShort, Required: required,
	}}}
}

func banModalFields() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		shortInput(modalFieldUser, "User id or mention", true),
		shortInput(modalFieldReason, "Reason", false),
	}
}

func rolesModalFields() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		shortInput(modalFieldUser, "User id or mention", true),
		shortInput(modalFieldRole, "Role id", true),
		shortInput(modalFieldAction, "Action: add or remove", true),
	}
}

func warningsModalFields() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		shortInput(modalFieldUser, "User id or mention", true),
		shortInput(modalFieldReason, "Reason", true),
	}
}

func embedModalFields() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		shortInput(modalFieldChannel, "Channel id", true),
		shortInput(modalFieldTitle, "Title", true),
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{discordgo.TextInput{
			CustomID: modalFieldBody, Label: "Description", Style: discordgo.TextInputParagraph, Required: true,
		}}},
		shortInput(modalFieldColor, "Color (hex, e.g. #FF0000)", false),
	}
}

func (b *Bot) submitBanModal(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) {
	target := modalValue(data, modalFieldUser)
	reason := modalValue(data, modalFieldReason)

	id, err := b.deps.Moderation.Ban(context.Background(), b.invoker(i), target, reason)
	if errors.Is(err, moderation.ErrBadID) {
		replyEphemeral(s, i, "That does not look like a user id.")
		return
	}
	if err != nil {
		replyEphemeral(s, i, "Failed to ban: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Banned <@%s>.", id))
}

func (b *Bot) submitRolesModal(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) {
	target := modalValue(data, modalFieldUser)
	roleID := modalValue(data, modalFieldRole)
	action := strings.ToLower(strings.TrimSpace(modalValue(data, modalFieldAction)))

	if action != "add" && action != "remove" {
		replyEphemeral(s, i, `The action must be "add" or "remove".`)
		return
	}
	role, err := b.deps.Moderation.EditRole(context.Background(), b.invoker(i), target, roleID, action == "add")
	if errors.Is(err, moderation.ErrBadID) {
		replyEphemeral(s, i, "That does not look like a user id.")
		return
	}
	if errors.Is(err, directory.ErrNotFound) {
		replyEphemeral(s, i, "Role not found.")
		return
	}
	if err != nil {
		replyEphemeral(s, i, "Failed to edit roles: "+err.Error())
		return
	}
	verb := "added to"
	if action == "remove" {
		verb = "removed from"
	}
	replyEphemeral(s, i, fmt.Sprintf("Role **%s** %s the member.", role.Name, verb))
}

func (b *Bot) submitWarningsModal(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) {
	target := modalValue(data, modalFieldUser)
	reason := modalValue(data, modalFieldReason)

	w, err := b.deps.Moderation.Warn(context.Background(), b.invoker(i), target, reason)
	if errors.Is(err, moderation.ErrBadID) {
		replyEphemeral(s, i, "That does not look like a user id.")
		return
	}
	if err != nil {
		replyEphemeral(s, i, "Failed to warn: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Warning recorded with id `%s`.", w.ID))
}

func (b *Bot) submitEmbedModal(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ModalSubmitInteractionData) {
	channelID := strings.TrimSpace(modalValue(data, modalFieldChannel))
	err := b.deps.Moderation.ComposeEmbed(context.Background(), channelID,
		modalValue(data, modalFieldTitle),
		modalValue(data, modalFieldBody),
		modalValue(data, modalFieldColor))
	if err != nil {
		replyEphemeral(s, i, "Failed to post the embed: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Embed posted in <#%s>.", channelID))
}

func modalValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range ar.Components {
			if in, ok := c.(*discordgo.TextInput); ok && in.CustomID == customID {
				return in.Value
			}
		}
	}
	return ""
}
