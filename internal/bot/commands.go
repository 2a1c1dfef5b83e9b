package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/xunintzx/antlove/internal/moderation"
	"github.com/xunintzx/antlove/internal/panel"
)

var adminPerm = int64(discordgo.PermissionAdministrator)

func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name: "setup-tickets", Description: "Post the ticket panel in a channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to post the panel in", Required: true},
			},
		},
		{
			Name: "setup-roles", Description: "Post the role request panel in a channel",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Channel to post the panel in", Required: true},
			},
		},
		{
			Name: "panel", Description: "Post the admin moderation panel here",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name: "config", Description: "Show the bot configuration and recent log activity",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name: "warn", Description: "Warn a member",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to warn", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason", Required: true},
			},
		},
		{
			Name: "warnings", Description: "List a member's warnings",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to inspect", Required: true},
			},
		},
		{
			Name: "unwarn", Description: "Remove one warning by id",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Warning id", Required: true},
			},
		},
		{
			Name: "clearwarns", Description: "Remove all warnings from a member",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
		{
			Name: "ban", Description: "Ban a member",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to ban", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
			},
		},
		{
			Name: "unban", Description: "Lift a ban by user id",
			DefaultMemberPermissions: &adminPerm,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "user-id", Description: "User id or mention", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason"},
			},
		},
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		replyEphemeral(s, i, "You need administrator permission to use this command.")
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case "setup-tickets":
		b.handleSetupTickets(s, i, data)
	case "setup-roles":
		b.handleSetupRoles(s, i, data)
	case "panel":
		b.handleAdminPanel(s, i)
	case "config":
		b.handleConfig(s, i)
	case "warn":
		b.handleWarn(s, i, data)
	case "warnings":
		b.handleWarnings(s, i, data)
	case "unwarn":
		b.handleUnwarn(s, i, data)
	case "clearwarns":
		b.handleClearWarns(s, i, data)
	case "ban":
		b.handleBan(s, i, data)
	case "unban":
		b.handleUnban(s, i, data)
	default:
		b.logger.Warn("unknown command", "command", data.Name)
	}
}

func optMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func optString(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := m[name]; ok {
		return o.StringValue()
	}
	return ""
}

func (b *Bot) handleSetupTickets(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	ch := om["channel"].ChannelValue(s)

	embed := &discordgo.MessageEmbed{
		Title:       "🎫 Support Tickets",
		Description: "Need help? Click the button below to open a private ticket with the staff.",
		Color:       0x3498DB,
	}
	_, err := s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.Button{
				Label:    "Create Ticket",
				Style:    discordgo.PrimaryButton,
				CustomID: panel.TicketCreateID,
				Emoji:    &discordgo.ComponentEmoji{Name: "🎫"},
			}},
		}},
	})
	if err != nil {
		replyEphemeral(s, i, "Failed to post the panel: "+err.Error())
		return
	}
	b.logger.Info("ticket panel posted", "channel", ch.ID, "by", interactionUserID(i))
	replyEphemeral(s, i, fmt.Sprintf("Ticket panel posted in <#%s>.", ch.ID))
}

func (b *Bot) handleSetupRoles(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	ch := om["channel"].ChannelValue(s)

	embed := &discordgo.MessageEmbed{
		Title:       "🎭 Role Requests",
		Description: "Click the button below to request a community role.\nYou will be asked to pass a quick verification first.",
		Color:       0x9B59B6,
	}
	_, err := s.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{discordgo.Button{
				Label:    "Request Role",
				Style:    discordgo.SuccessButton,
				CustomID: panel.RoleRequestID,
				Emoji:    &discordgo.ComponentEmoji{Name: "🎭"},
			}},
		}},
	})
	if err != nil {
		replyEphemeral(s, i, "Failed to post the panel: "+err.Error())
		return
	}
	b.logger.Info("role panel posted", "channel", ch.ID, "by", interactionUserID(i))
	replyEphemeral(s, i, fmt.Sprintf("Role request panel posted in <#%s>.", ch.ID))
}

func (b *Bot) handleAdminPanel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "🛡️ Moderation Panel",
		Description: "Admin-only controls. Every action asks for its details in a form.",
		Color:       0xE67E22,
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Components: []discordgo.MessageComponent{discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{Label: "Ban", Style: discordgo.DangerButton, CustomID: panel.AdminBanID, Emoji: &discordgo.ComponentEmoji{Name: "🔨"}},
					discordgo.Button{Label: "Roles", Style: discordgo.PrimaryButton, CustomID: panel.AdminRolesID, Emoji: &discordgo.ComponentEmoji{Name: "🎭"}},
					discordgo.Button{Label: "Warnings", Style: discordgo.SecondaryButton, CustomID: panel.AdminWarningsID, Emoji: &discordgo.ComponentEmoji{Name: "⚠️"}},
					discordgo.Button{Label: "Embed", Style: discordgo.SecondaryButton, CustomID: panel.AdminEmbedID, Emoji: &discordgo.ComponentEmoji{Name: "📝"}},
				},
			}},
		},
	})
	if err != nil {
		b.logger.Warn("panel post failed", "error", err)
	}
}

func (b *Bot) handleConfig(s *discordgo.Session, i *discordgo.InteractionCreate) {
	warnCount := 0
	var recent []string
	if b.deps.Logs != nil {
		for _, e := range b.deps.Logs.Recent(slog.LevelWarn, 5) {
			recent = append(recent, fmt.Sprintf("`%s` %s", e.Time.Format("15:04:05"), e.Message))
		}
		warnCount = b.deps.Logs.CountSince(time.Now().Add(-time.Hour), slog.LevelWarn)
	}
	diag := "none"
	if len(recent) > 0 {
		diag = strings.Join(recent, "\n")
	}

	embed := &discordgo.MessageEmbed{
		Title: "⚙️ Configuration",
		Color: 0x95A5A6,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Guild", Value: b.cfg.Bot.GuildID, Inline: true},
			{Name: "Ticket category", Value: fmt.Sprintf("<#%s>", b.cfg.Tickets.CategoryID), Inline: true},
			{Name: "Ticket logs", Value: fmt.Sprintf("<#%s>", b.cfg.Tickets.LogsChannelID), Inline: true},
			{Name: "Review channel", Value: fmt.Sprintf("<#%s>", b.cfg.Roles.ReviewChannelID), Inline: true},
			{Name: "Requestable roles", Value: fmt.Sprintf("%d configured", len(b.cfg.Roles.RoleIDs)), Inline: true},
			{Name: "Open tickets", Value: fmt.Sprintf("%d", b.deps.Tickets.OpenCount()), Inline: true},
			{Name: fmt.Sprintf("Warnings last hour (%d)", warnCount), Value: diag, Inline: false},
		},
	}
	replyEmbedEphemeral(s, i, embed, nil)
}

func (b *Bot) handleWarn(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := om["user"].UserValue(s)
	reason := optString(om, "reason")

	w, err := b.deps.Moderation.Warn(context.Background(), b.invoker(i), target.ID, reason)
	if err != nil {
		replyEphemeral(s, i, "Failed to warn: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Warned <@%s>. Warning id: `%s`", target.ID, w.ID))
}

func (b *Bot) handleWarnings(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := om["user"].UserValue(s)

	notice, err := b.deps.Moderation.ListWarnings(target.ID)
	if err != nil {
		replyEphemeral(s, i, "Failed to list warnings: "+err.Error())
		return
	}
	embed := &discordgo.MessageEmbed{Title: notice.Title, Description: notice.Description, Color: notice.Color}
	for _, f := range notice.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	replyEmbedEphemeral(s, i, embed, nil)
}

func (b *Bot) handleUnwarn(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := om["user"].UserValue(s)
	id := optString(om, "id")

	removed, err := b.deps.Moderation.RemoveWarning(target.ID, id)
	if err != nil {
		replyEphemeral(s, i, "Failed to remove warning: "+err.Error())
		return
	}
	if !removed {
		replyEphemeral(s, i, "No such warning.")
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Warning `%s` removed from <@%s>.", id, target.ID))
}

func (b *Bot) handleClearWarns(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := om["user"].UserValue(s)

	n, err := b.deps.Moderation.ClearWarnings(b.invoker(i), target.ID)
	if err != nil {
		replyEphemeral(s, i, "Failed to clear warnings: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Cleared %d warning(s) from <@%s>.", n, target.ID))
}

func (b *Bot) handleBan(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := om["user"].UserValue(s)
	reason := optString(om, "reason")

	id, err := b.deps.Moderation.Ban(context.Background(), b.invoker(i), target.ID, reason)
	if err != nil {
		replyEphemeral(s, i, "Failed to ban: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Banned <@%s>.", id))
}

func (b *Bot) handleUnban(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	om := optMap(data.Options)
	target := optString(om, "user-id")
	reason := optString(om, "reason")

	id, err := b.deps.Moderation.Unban(context.Background(), b.invoker(i), target, reason)
	if errors.Is(err, moderation.ErrBadID) {
		replyEphemeral(s, i, "That does not look like a user id.")
		return
	}
	if err != nil {
		replyEphemeral(s, i, "Failed to unban: "+err.Error())
		return
	}
	replyEphemeral(s, i, fmt.Sprintf("Unbanned <@%s>.", id))
}
