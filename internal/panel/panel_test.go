package panel

import "testing"

func TestTicketCloseRoundTrip(t *testing.T) {
	id := TicketCloseID("123456789012345678")
	got, ok := ParseTicketClose(id)
	if !ok || got != "123456789012345678" {
		t.Fatalf("round trip failed: %q, %v", got, ok)
	}
	if _, ok := ParseTicketClose("ticket:close:"); ok {
		t.Error("empty payload must not parse")
	}
	if _, ok := ParseTicketClose("rolereq:approve:x"); ok {
		t.Error("foreign id must not parse")
	}
}

func TestCaptchaOptionRoundTrip(t *testing.T) {
	id := CaptchaOptionID("42", "A1B2C3D4", 3)
	user, nonce, opt, ok := ParseCaptchaOption(id)
	if !ok || user != "42" || nonce != "A1B2C3D4" || opt != 3 {
		t.Fatalf("round trip failed: %q, %q, %d, %v", user, nonce, opt, ok)
	}
	if _, _, _, ok := ParseCaptchaOption("captcha:42"); ok {
		t.Error("missing nonce and index must not parse")
	}
	if _, _, _, ok := ParseCaptchaOption("captcha:42:A1B2C3D4"); ok {
		t.Error("missing option index must not parse")
	}
	if _, _, _, ok := ParseCaptchaOption("captcha:42:A1B2C3D4:nope"); ok {
		t.Error("non-numeric index must not parse")
	}
}

func TestRequestReviewRoundTrip(t *testing.T) {
	reqID := "42_1700000000"
	if got, ok := ParseRequestApprove(RequestApproveID(reqID)); !ok || got != reqID {
		t.Errorf("approve round trip failed: %q, %v", got, ok)
	}
	if got, ok := ParseRequestDeny(RequestDenyID(reqID)); !ok || got != reqID {
		t.Errorf("deny round trip failed: %q, %v", got, ok)
	}
	if _, ok := ParseRequestApprove(RequestDenyID(reqID)); ok {
		t.Error("deny id must not parse as approve")
	}
}

func TestRoleFormRoundTrip(t *testing.T) {
	if got, ok := ParseRoleForm(RoleFormID("77")); !ok || got != "77" {
		t.Errorf("form round trip failed: %q, %v", got, ok)
	}
}
