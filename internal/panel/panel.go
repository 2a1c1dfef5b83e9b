// Package panel defines the persistent component identifiers. A custom
// id is the only state a button or modal keeps across restarts, so every
// id embeds the data its handler needs: kind plus a payload that parses
// back out without closure captures.
package panel

import (
	"strconv"
	"strings"
)

// Fixed ids for the always-on panel controls.
const (
	TicketCreateID = "tickets:create"
	RoleRequestID  = "roles:request"

	AdminBanID      = "panel:ban"
	AdminRolesID    = "panel:roles"
	AdminWarningsID = "panel:warnings"
	AdminEmbedID    = "panel:embed"

	BanModalID      = "panel:ban:modal"
	RolesModalID    = "panel:roles:modal"
	WarningsModalID = "panel:warnings:modal"
	EmbedModalID    = "panel:embed:modal"
)

// Prefixes for ids carrying an embedded payload.
const (
	ticketClosePrefix    = "ticket:close:"
	captchaOptionPrefix  = "captcha:"
	roleFormPrefix       = "roles:form:"
	requestApprovePrefix = "rolereq:approve:"
	requestDenyPrefix    = "rolereq:deny:"
)

// TicketCloseID binds a close button to its ticket (channel) id.
func TicketCloseID(ticketID string) string {
	return ticketClosePrefix + ticketID
}

// ParseTicketClose recovers the ticket id from a close button.
func ParseTicketClose(customID string) (string, bool) {
	return parsePayload(customID, ticketClosePrefix)
}

// CaptchaOptionID binds a challenge option button to the challenged
// user, the challenge instance nonce, and the option's display position.
// The nonce keeps buttons from a superseded challenge message from
// resolving against its replacement.
func CaptchaOptionID(userID, nonce string, option int) string {
	return captchaOptionPrefix + userID + ":" + nonce + ":" + strconv.Itoa(option)
}

// ParseCaptchaOption recovers the user id, nonce, and option index.
func ParseCaptchaOption(customID string) (string, string, int, bool) {
	payload, ok := parsePayload(customID, captchaOptionPrefix)
	if !ok {
		return "", "", 0, false
	}
	userID, rest, found := strings.Cut(payload, ":")
	if !found {
		return "", "", 0, false
	}
	nonce, idx, found := strings.Cut(rest, ":")
	if !found {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return "", "", 0, false
	}
	return userID, nonce, n, true
}

// RoleFormID binds the request form modal to the submitting user.
func RoleFormID(userID string) string {
	return roleFormPrefix + userID
}

// ParseRoleForm recovers the user id from a form modal id.
func ParseRoleForm(customID string) (string, bool) {
	return parsePayload(customID, roleFormPrefix)
}

// RequestApproveID and RequestDenyID bind review controls to a request id.
func RequestApproveID(requestID string) string {
	return requestApprovePrefix + requestID
}

func RequestDenyID(requestID string) string {
	return requestDenyPrefix + requestID
}

// ParseRequestApprove recovers the request id from an approve button.
func ParseRequestApprove(customID string) (string, bool) {
	return parsePayload(customID, requestApprovePrefix)
}

// ParseRequestDeny recovers the request id from a deny button.
func ParseRequestDeny(customID string) (string, bool) {
	return parsePayload(customID, requestDenyPrefix)
}

func parsePayload(customID, prefix string) (string, bool) {
	if !strings.HasPrefix(customID, prefix) {
		return "", false
	}
	payload := customID[len(prefix):]
	if payload == "" {
		return "", false
	}
	return payload, true
}
