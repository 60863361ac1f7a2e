package digest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mailroom/internal/types"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testTemplate = `<html><head><title>{{PREVIEW_TEXT}}</title></head>
<body><p>Hey {{USER_NAME}}, {{DIGEST_DATE}}</p>
<!--PROJECT_SECTIONS-->
<a href="{{CTA_URL}}">Open</a> <a href="{{MANAGE_PREFS_URL}}">Prefs</a>
</body></html>`

func testBatch() *types.DigestBatch {
	return &types.DigestBatch{
		ID:             "dig_1",
		UserID:         "user_1",
		UserName:       "Ada",
		RecipientEmail: "ada@example.com",
		DigestDate:     time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		Status:         types.InviteStatusPending,
	}
}

func chatEvent(id, project string, mentions ...string) types.DigestEvent {
	return types.DigestEvent{
		ID:        id,
		ProjectID: project,
		EventType: types.EventChatMessageSent,
		Payload:   types.EventPayload{MentionedUserIDs: mentions},
	}
}

func docEvent(id, project string) types.DigestEvent {
	return types.DigestEvent{ID: id, ProjectID: project, EventType: types.EventDocumentUploaded}
}

func TestRenderGroupsByProjectInFirstSeenOrder(t *testing.T) {
	events := []types.DigestEvent{
		chatEvent("ev_1", "proj_a"),
		docEvent("ev_2", "proj_b"),
		docEvent("ev_3", "proj_a"),
	}
	names := map[string]string{"proj_a": "Alpha Tower", "proj_b": "Beta Plaza"}

	html, text := Render(testTemplate, testBatch(), events, names)

	aIdx := strings.Index(html, "Alpha Tower")
	bIdx := strings.Index(html, "Beta Plaza")
	if aIdx < 0 || bIdx < 0 || aIdx > bIdx {
		t.Errorf("project order wrong: alpha at %d, beta at %d", aIdx, bIdx)
	}

	// Project A has one message and one document; B has one document.
	if !strings.Contains(text, "Alpha Tower\n-----------\n- 1 new message(s)\n- 1 new document upload(s)") {
		t.Errorf("text body wrong:\n%s", text)
	}
	if !strings.Contains(text, "Beta Plaza\n----------\n- 1 new document upload(s)") {
		t.Errorf("text body wrong:\n%s", text)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	events := []types.DigestEvent{
		chatEvent("ev_1", "proj_c"),
		chatEvent("ev_2", "proj_a"),
		docEvent("ev_3", "proj_b"),
	}
	names := map[string]string{"proj_a": "A", "proj_b": "B", "proj_c": "C"}

	html1, text1 := Render(testTemplate, testBatch(), events, names)
	for i := 0; i < 10; i++ {
		html2, text2 := Render(testTemplate, testBatch(), events, names)
		if html1 != html2 || text1 != text2 {
			t.Fatal("Render output varies across calls with identical input")
		}
	}
}

func TestRenderMentionCounting(t *testing.T) {
	events := []types.DigestEvent{
		chatEvent("ev_1", "proj_a", "user_1", "user_2"),
		chatEvent("ev_2", "proj_a", "user_2"),
		chatEvent("ev_3", "proj_a", "user_1"),
	}

	_, text := Render(testTemplate, testBatch(), events, map[string]string{"proj_a": "Alpha"})

	if !strings.Contains(text, "- 3 new message(s) (2 mentioned you)") {
		t.Errorf("mention count wrong:\n%s", text)
	}
}

func TestRenderFallbacks(t *testing.T) {
	batch := testBatch()
	batch.UserName = ""
	events := []types.DigestEvent{docEvent("ev_1", "proj_x")}

	html, text := Render(testTemplate, batch, events, map[string]string{})

	if !strings.Contains(html, "Hey there, August 28, 2026") {
		t.Errorf("fallback user name missing: %s", html)
	}
	if !strings.Contains(html, "A project") {
		t.Errorf("fallback project name missing: %s", html)
	}
	if !strings.Contains(text, "Open CapMatch: https://capmatch.com/dashboard") {
		t.Errorf("CTA missing:\n%s", text)
	}
}

func TestPreviewText(t *testing.T) {
	events := []types.DigestEvent{
		chatEvent("ev_1", "proj_a"),
		chatEvent("ev_2", "proj_a"),
		docEvent("ev_3", "proj_b"),
	}
	if got := PreviewText(events); got != "3 updates across 2 project(s)" {
		t.Errorf("PreviewText = %q", got)
	}
}

// --- Builder tests ---

type fakeBatchStore struct {
	batch  *types.DigestBatch
	events []types.DigestEvent
	err    error
}

func (f *fakeBatchStore) GetByID(context.Context, string) (*types.DigestBatch, error) {
	return f.batch, f.err
}

func (f *fakeBatchStore) EventsForBatch(context.Context, string) ([]types.DigestEvent, error) {
	return f.events, nil
}

type fakeProjectDirectory struct {
	names map[string]string
	err   error
}

func (f *fakeProjectDirectory) ProjectNames(context.Context, []string) (map[string]string, error) {
	return f.names, f.err
}

func TestBuilderSuccess(t *testing.T) {
	store := &fakeBatchStore{
		batch:  testBatch(),
		events: []types.DigestEvent{chatEvent("ev_1", "proj_a", "user_1")},
	}
	dir := &fakeProjectDirectory{names: map[string]string{"proj_a": "Alpha"}}
	b := NewBuilder(store, dir, testTemplate, "CapMatch <noreply@capmatch.com>", newTestLogger())

	out, err := b.Build(context.Background(), "dig_1")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if out.Subject != "CapMatch Daily Digest for August 28, 2026" {
		t.Errorf("Subject = %q", out.Subject)
	}
	if out.To != "ada@example.com" {
		t.Errorf("To = %q", out.To)
	}
	if !strings.Contains(out.HTML, "1 updates across 1 project(s)") {
		t.Errorf("HTML missing preview text: %s", out.HTML)
	}
	if len(out.Tags) != 1 || out.Tags[0].Value != "daily_digest" {
		t.Errorf("Tags = %v", out.Tags)
	}
}

func TestBuilderNoContent(t *testing.T) {
	store := &fakeBatchStore{batch: testBatch()}
	b := NewBuilder(store, &fakeProjectDirectory{}, testTemplate, "f", newTestLogger())

	_, err := b.Build(context.Background(), "dig_1")
	if err != ErrNoContent {
		t.Errorf("err = %v, want ErrNoContent", err)
	}
}

func TestBuilderMissingTemplate(t *testing.T) {
	store := &fakeBatchStore{batch: testBatch(), events: []types.DigestEvent{docEvent("ev_1", "p")}}
	b := NewBuilder(store, &fakeProjectDirectory{}, "", "f", newTestLogger())

	_, err := b.Build(context.Background(), "dig_1")
	if types.CodeOf(err) != types.ErrCodeTemplateUnavailable {
		t.Errorf("error code = %s", types.CodeOf(err))
	}
}

func TestBuilderProjectLookupFailureTolerated(t *testing.T) {
	store := &fakeBatchStore{
		batch:  testBatch(),
		events: []types.DigestEvent{docEvent("ev_1", "proj_a")},
	}
	dir := &fakeProjectDirectory{err: types.NewAppError(types.ErrCodeInternalDB, "db down", nil)}
	b := NewBuilder(store, dir, testTemplate, "f", newTestLogger())

	out, err := b.Build(context.Background(), "dig_1")
	if err != nil {
		t.Fatalf("Build should tolerate project lookup failure, got: %v", err)
	}
	if !strings.Contains(out.HTML, "A project") {
		t.Errorf("HTML should use fallback project name: %s", out.HTML)
	}
}
