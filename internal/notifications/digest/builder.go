// Package digest builds the daily activity digest email: events for one
// user and one day, grouped by project then by event type, rendered into
// one card per project.
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mailroom/internal/notifications/core"
	"mailroom/internal/types"
)

// Fixed destination links rendered into every digest.
const (
	ctaURL         = "https://capmatch.com/dashboard"
	managePrefsURL = "https://capmatch.com/settings/notifications"
)

const dateLayout = "January 02, 2006"

// ErrNoContent marks a batch with zero events. The coordinator skips such
// items without sending anything.
var ErrNoContent = core.ErrNoContent

// BatchStore is the narrow read interface the digest builder needs.
type BatchStore interface {
	GetByID(ctx context.Context, id string) (*types.DigestBatch, error)
	EventsForBatch(ctx context.Context, batchID string) ([]types.DigestEvent, error)
}

// ProjectDirectory resolves project IDs to display names.
type ProjectDirectory interface {
	ProjectNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Builder assembles the digest send input: loads the batch and its events,
// resolves project names, groups, and renders.
type Builder struct {
	batches   BatchStore
	directory ProjectDirectory
	template  string
	from      string
	logger    *slog.Logger
}

// NewBuilder creates a digest Builder. template may be empty, in which case
// every Build fails with a template error.
func NewBuilder(batches BatchStore, directory ProjectDirectory, template, from string, logger *slog.Logger) *Builder {
	return &Builder{
		batches:   batches,
		directory: directory,
		template:  template,
		from:      from,
		logger:    logger,
	}
}

// Build renders the digest email for the given batch ID.
func (b *Builder) Build(ctx context.Context, id string) (types.SendInput, error) {
	if b.template == "" {
		return types.SendInput{}, types.NewAppError(
			types.ErrCodeTemplateUnavailable,
			"digest template is not loaded",
			nil,
		)
	}

	batch, err := b.batches.GetByID(ctx, id)
	if err != nil {
		return types.SendInput{}, err
	}
	events, err := b.batches.EventsForBatch(ctx, batch.ID)
	if err != nil {
		return types.SendInput{}, err
	}
	if len(events) == 0 {
		return types.SendInput{}, ErrNoContent
	}

	projectIDs := make([]string, 0, len(events))
	seen := make(map[string]bool)
	for _, ev := range events {
		if !seen[ev.ProjectID] {
			seen[ev.ProjectID] = true
			projectIDs = append(projectIDs, ev.ProjectID)
		}
	}

	names, err := b.directory.ProjectNames(ctx, projectIDs)
	if err != nil {
		b.logger.WarnContext(ctx, "project name lookup failed; using fallback names",
			"batch_id", batch.ID, "error", err)
		names = map[string]string{}
	}

	html, text := Render(b.template, batch, events, names)
	dateText := batch.DigestDate.In(time.UTC).Format(dateLayout)

	return types.SendInput{
		From:    b.from,
		To:      batch.RecipientEmail,
		Subject: "CapMatch Daily Digest for " + dateText,
		HTML:    html,
		Text:    text,
		Tags:    []types.Tag{{Name: "email_type", Value: "daily_digest"}},
	}, nil
}

// projectGroup is the grouped view of one project's events, in first-seen
// project order.
type projectGroup struct {
	projectID string
	messages  []types.DigestEvent
	documents []types.DigestEvent
}

// groupEvents partitions events by project, preserving the order projects
// first appear in the input, then by event type within each project.
func groupEvents(events []types.DigestEvent) []projectGroup {
	index := make(map[string]int)
	var groups []projectGroup
	for _, ev := range events {
		i, ok := index[ev.ProjectID]
		if !ok {
			i = len(groups)
			index[ev.ProjectID] = i
			groups = append(groups, projectGroup{projectID: ev.ProjectID})
		}
		switch ev.EventType {
		case types.EventChatMessageSent:
			groups[i].messages = append(groups[i].messages, ev)
		case types.EventDocumentUploaded:
			groups[i].documents = append(groups[i].documents, ev)
		}
	}
	return groups
}

// mentionCount counts messages whose mention list includes userID.
func mentionCount(messages []types.DigestEvent, userID string) int {
	n := 0
	for _, msg := range messages {
		for _, id := range msg.Payload.MentionedUserIDs {
			if id == userID {
				n++
				break
			}
		}
	}
	return n
}

// Render produces the HTML and text bodies. Pure string work, exported so
// rendering can be tested without a store.
func Render(template string, batch *types.DigestBatch, events []types.DigestEvent, projectNames map[string]string) (string, string) {
	groups := groupEvents(events)
	userName := batch.UserName
	if userName == "" {
		userName = "there"
	}
	dateText := batch.DigestDate.In(time.UTC).Format(dateLayout)

	var htmlSections []string
	var text strings.Builder
	text.WriteString("CapMatch Daily Digest\n")
	fmt.Fprintf(&text, "Hey %s, here's what happened on %s\n\n", userName, dateText)

	for _, g := range groups {
		projectName, ok := projectNames[g.projectID]
		if !ok {
			projectName = "A project"
		}
		htmlSections = append(htmlSections, renderProjectCard(projectName, g, batch.UserID))

		text.WriteString(projectName + "\n")
		text.WriteString(strings.Repeat("-", len(projectName)) + "\n")
		if len(g.messages) > 0 {
			fmt.Fprintf(&text, "- %d new message(s)%s\n", len(g.messages), mentionSuffix(g.messages, batch.UserID))
		}
		if len(g.documents) > 0 {
			fmt.Fprintf(&text, "- %d new document upload(s)\n", len(g.documents))
		}
		text.WriteString("\n")
	}

	fmt.Fprintf(&text, "Open CapMatch: %s\n", ctaURL)
	fmt.Fprintf(&text, "Manage preferences: %s\n", managePrefsURL)

	html := strings.NewReplacer(
		"{{PREVIEW_TEXT}}", PreviewText(events),
		"{{USER_NAME}}", userName,
		"{{DIGEST_DATE}}", dateText,
		"{{CTA_URL}}", ctaURL,
		"{{MANAGE_PREFS_URL}}", managePrefsURL,
		"<!--PROJECT_SECTIONS-->", strings.Join(htmlSections, "\n"),
	).Replace(template)

	return html, text.String()
}

func mentionSuffix(messages []types.DigestEvent, userID string) string {
	if mentions := mentionCount(messages, userID); mentions > 0 {
		return fmt.Sprintf(" (%d mentioned you)", mentions)
	}
	return ""
}

func renderProjectCard(projectName string, g projectGroup, userID string) string {
	var rows []string
	if len(g.messages) > 0 {
		rows = append(rows, fmt.Sprintf(
			`<p style="display:flex;align-items:center;gap:10px;font-weight:500;color:#1F2937;margin:6px 0;"><span>%s</span><span><strong>%d</strong> new message(s)%s</span></p>`,
			messageIcon, len(g.messages), mentionSuffix(g.messages, userID)))
	}
	if len(g.documents) > 0 {
		rows = append(rows, fmt.Sprintf(
			`<p style="display:flex;align-items:center;gap:10px;font-weight:500;color:#1F2937;margin:6px 0;"><span>%s</span><span><strong>%d</strong> new document upload(s)</span></p>`,
			documentIcon, len(g.documents)))
	}
	if len(rows) == 0 {
		rows = append(rows, `<p style="color:#94A3B8;font-size:14px;margin:6px 0;">No activity matched your preferences.</p>`)
	}

	return `<div style="background:#F8FAFF;border-radius:20px;border:1px solid #BFDBFE;padding:24px;margin-bottom:16px;">` +
		fmt.Sprintf(`<p style="font-size:18px;color:#3B82F6;margin:0 0 12px 0;font-weight:600;">%s</p>`, projectName) +
		strings.Join(rows, "") +
		`</div>`
}

// PreviewText summarizes the digest for inbox preview panes.
func PreviewText(events []types.DigestEvent) string {
	projects := make(map[string]bool)
	for _, ev := range events {
		projects[ev.ProjectID] = true
	}
	return fmt.Sprintf("%d updates across %d project(s)", len(events), len(projects))
}

const messageIcon = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="#3B82F6" stroke-width="1.7" stroke-linecap="round" stroke-linejoin="round"><path d="M21 11.5a8.38 8.38 0 0 1-.9 3.8 8.5 8.5 0 0 1-7.6 4.7 8.38 8.38 0 0 1-3.8-.9L3 21l1.9-5.7a8.38 8.38 0 0 1-.9-3.8 8.5 8.5 0 0 1 4.7-7.6 8.38 8.38 0 0 1 3.8-.9h0a8.5 8.5 0 0 1 8.5 8.5Z"/></svg>`

const documentIcon = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="#3B82F6" stroke-width="1.7" stroke-linecap="round" stroke-linejoin="round"><path d="M13 2H6a2 2 0 0 0-2 2v16a2 2 0 0 0 2 2h12a2 2 0 0 0 2-2V9Z"/><path d="M13 2v7h7"/><path d="M9 13h6"/><path d="M9 17h6"/></svg>`
