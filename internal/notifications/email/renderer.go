package email

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"mailroom/internal/types"
)

// Display fallbacks used when directory lookups come back empty. A missing
// org or inviter name degrades the copy, never the send.
const (
	fallbackOrgName     = "CapMatch"
	fallbackInviterName = "a member of your team"
	fallbackExpiresText = "soon"
)

// expiresTextLayout renders expiry dates as e.g. "January 02, 2026".
const expiresTextLayout = "January 02, 2006"

// InviteRenderer builds the HTML and plain-text bodies for an org invite
// email from a loaded template. Rendering is pure string work; all lookups
// happen before Render is called.
type InviteRenderer struct {
	template string
	from     string
	baseURL  string
}

// NewInviteRenderer creates an InviteRenderer. baseURL is the public web app
// URL used for accept links, without a trailing slash.
func NewInviteRenderer(template, from, baseURL string) *InviteRenderer {
	return &InviteRenderer{
		template: template,
		from:     from,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

// Render produces the full provider send input for an invite. org and
// inviter may be nil; fallback copy is substituted.
func (r *InviteRenderer) Render(invite *types.Invite, org *types.Organization, inviter *types.Profile) types.SendInput {
	displayInvitee := invite.InvitedEmail
	displayOrg := fallbackOrgName
	if org != nil && org.Name != "" {
		displayOrg = org.Name
	}
	inviterName := fallbackInviterName
	if inviter != nil && inviter.FullName != "" {
		inviterName = inviter.FullName
	}
	expiresText := fallbackExpiresText
	if invite.ExpiresAt != nil {
		expiresText = invite.ExpiresAt.In(time.UTC).Format(expiresTextLayout)
	}
	acceptURL := r.AcceptURL(invite.Token)

	html := strings.NewReplacer(
		"{{INVITEE_NAME}}", displayInvitee,
		"{{ORG_NAME}}", displayOrg,
		"{{INVITED_BY_NAME}}", inviterName,
		"{{ACCEPT_URL}}", acceptURL,
		"{{EXPIRES_TEXT}}", expiresText,
	).Replace(r.template)

	textLines := []string{
		fmt.Sprintf("Hi %s,", displayInvitee),
		"",
		fmt.Sprintf("You've been invited to join %s on CapMatch by %s.", displayOrg, inviterName),
		"",
		fmt.Sprintf("Open this link to accept your invite: %s", acceptURL),
		"",
		fmt.Sprintf("This invite will expire on %s.", expiresText),
		"",
		"If you weren't expecting this, you can ignore this email.",
	}

	// Subject names the org only when we actually resolved one.
	subjectOrg := ""
	if org != nil && org.Name != "" {
		subjectOrg = " to " + org.Name
	}

	return types.SendInput{
		From:    r.from,
		To:      invite.InvitedEmail,
		Subject: fmt.Sprintf("You're invited%s on CapMatch", subjectOrg),
		HTML:    html,
		Text:    strings.Join(textLines, "\n"),
		Tags:    []types.Tag{{Name: "email_type", Value: "org_invite"}},
	}
}

// AcceptURL builds the invite accept link. An invite without a token falls
// back to the bare app URL; the email still goes out.
func (r *InviteRenderer) AcceptURL(token string) string {
	if token == "" {
		return r.baseURL
	}
	return r.baseURL + "/accept-invite?token=" + url.QueryEscape(token)
}
