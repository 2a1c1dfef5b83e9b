package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Discord implements Service against a single guild via discordgo.
type Discord struct {
	session          *discordgo.Session
	guildID          string
	ticketCategoryID string
}

// NewDiscord wraps an open discordgo session for one guild.
func NewDiscord(session *discordgo.Session, guildID, ticketCategoryID string) *Discord {
	return &Discord{
		session:          session,
		guildID:          guildID,
		ticketCategoryID: ticketCategoryID,
	}
}

func (d *Discord) CreateTicketChannel(ctx context.Context, name, ownerID string) (Channel, error) {
	cat, err := d.session.Channel(d.ticketCategoryID, discordgo.WithContext(ctx))
	if err != nil || cat.Type != discordgo.ChannelTypeGuildCategory {
		return Channel{}, ErrCategoryNotFound
	}

	allow := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages |
		discordgo.PermissionAttachFiles | discordgo.PermissionReadMessageHistory)

	overwrites := []*discordgo.PermissionOverwrite{
		{ID: d.guildID, Type: discordgo.PermissionOverwriteTypeRole, Deny: discordgo.PermissionViewChannel},
		{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: allow},
		{ID: d.session.State.User.ID, Type: discordgo.PermissionOverwriteTypeMember, Allow: allow},
	}

	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, fmt.Errorf("directory: list roles: %w", err)
	}
	for _, r := range roles {
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			overwrites = append(overwrites, &discordgo.PermissionOverwrite{
				ID:    r.ID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: allow,
			})
		}
	}

	ch, err := d.session.GuildChannelCreateComplex(d.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             d.ticketCategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, fmt.Errorf("directory: create channel: %w", err)
	}
	return Channel{ID: ch.ID, Name: ch.Name}, nil
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := d.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("directory: delete channel: %w", err)
	}
	return nil
}

func (d *Discord) ChannelByName(ctx context.Context, name string) (Channel, bool, error) {
	channels, err := d.session.GuildChannels(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return Channel{}, false, fmt.Errorf("directory: list channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Name == name {
			return Channel{ID: ch.ID, Name: ch.Name}, true, nil
		}
	}
	return Channel{}, false, nil
}

// History pages through the channel's full message history and returns it
// oldest first.
func (d *Discord) History(ctx context.Context, channelID string) ([]HistoryMessage, error) {
	var newestFirst []*discordgo.Message
	before := ""
	for {
		batch, err := d.session.ChannelMessages(channelID, 100, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("directory: channel history: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		newestFirst = append(newestFirst, batch...)
		before = batch[len(batch)-1].ID
		if len(batch) < 100 {
			break
		}
	}

	out := make([]HistoryMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		out = append(out, HistoryMessage{
			Author:        m.Author.Username,
			Content:       m.Content,
			Timestamp:     m.Timestamp,
			FromBot:       m.Author.Bot,
			HasEmbed:      len(m.Embeds) > 0,
			HasAttachment: len(m.Attachments) > 0,
		})
	}
	return out, nil
}

func (d *Discord) Role(ctx context.Context, roleID string) (Role, error) {
	roles, err := d.session.GuildRoles(d.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return Role{}, fmt.Errorf("directory: list roles: %w", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return Role{}, ErrNotFound
}

func (d *Discord) GrantRole(ctx context.Context, userID, roleID, reason string) error {
	err := d.session.GuildMemberRoleAdd(d.guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("directory: grant role: %w", err)
	}
	return nil
}

func (d *Discord) RevokeRole(ctx context.Context, userID, roleID, reason string) error {
	err := d.session.GuildMemberRoleRemove(d.guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("directory: revoke role: %w", err)
	}
	return nil
}

func (d *Discord) Member(ctx context.Context, userID string) (Member, error) {
	m, err := d.session.GuildMember(d.guildID, userID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return Member{}, ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("directory: member: %w", err)
	}
	display := m.Nick
	if display == "" {
		display = m.User.GlobalName
	}
	if display == "" {
		display = m.User.Username
	}
	return Member{
		ID:          m.User.ID,
		Username:    m.User.Username,
		DisplayName: display,
		Roles:       m.Roles,
	}, nil
}

func (d *Discord) SetNickname(ctx context.Context, userID, nick, reason string) error {
	err := d.session.GuildMemberNickname(d.guildID, userID, nick,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("directory: set nickname: %w", err)
	}
	return nil
}

func (d *Discord) Ban(ctx context.Context, userID, reason string) error {
	err := d.session.GuildBanCreateWithReason(d.guildID, userID, reason, 0, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("directory: ban: %w", err)
	}
	return nil
}

func (d *Discord) Unban(ctx context.Context, userID, reason string) error {
	err := d.session.GuildBanDelete(d.guildID, userID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("directory: unban: %w", err)
	}
	return nil
}

func (d *Discord) Send(ctx context.Context, channelID string, n Notice) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, noticeToMessageSend(n), discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("directory: send notice: %w", err)
	}
	return msg.ID, nil
}

func (d *Discord) Edit(ctx context.Context, channelID, messageID string, n Notice) error {
	embeds := []*discordgo.MessageEmbed{noticeToEmbed(n)}
	components := buttonsToComponents(n.Buttons)
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("directory: edit notice: %w", err)
	}
	return nil
}

func (d *Discord) Direct(ctx context.Context, userID string, n Notice) error {
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("directory: open direct channel: %w", err)
	}
	if _, err := d.Send(ctx, ch.ID, n); err != nil {
		return err
	}
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	if isNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("directory: delete message: %w", err)
	}
	return nil
}

// --- conversion helpers ---

func noticeToEmbed(n Notice) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       n.Color,
	}
	if n.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: n.Footer}
	}
	if n.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: n.Image}
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

func buttonsToComponents(buttons []Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return []discordgo.MessageComponent{}
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		btn := discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyle(b.Style),
			CustomID: b.CustomID,
			Disabled: b.Disabled,
		}
		if b.Emoji != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}
		row.Components = append(row.Components, btn)
	}
	return []discordgo.MessageComponent{row}
}

func buttonStyle(s ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case ButtonSecondary:
		return discordgo.SecondaryButton
	case ButtonSuccess:
		return discordgo.SuccessButton
	case ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func noticeToMessageSend(n Notice) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{noticeToEmbed(n)},
		Components: buttonsToComponents(n.Buttons),
	}
	if n.File != nil {
		send.Files = []*discordgo.File{{
			Name:        n.File.Name,
			ContentType: "text/plain",
			Reader:      n.File.Reader,
		}}
	}
	return send
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode == 404
	}
	return false
}
