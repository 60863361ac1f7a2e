package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mailroom/internal/types"
)

type fakeInviteStore struct {
	invite *types.Invite
	err    error
}

func (f *fakeInviteStore) GetByID(context.Context, string) (*types.Invite, error) {
	return f.invite, f.err
}

type fakeDirectory struct {
	org        *types.Organization
	orgErr     error
	profile    *types.Profile
	profileErr error
}

func (f *fakeDirectory) GetOrganization(context.Context, string) (*types.Organization, error) {
	return f.org, f.orgErr
}

func (f *fakeDirectory) GetProfile(context.Context, string) (*types.Profile, error) {
	return f.profile, f.profileErr
}

func TestInviteBuilderSuccess(t *testing.T) {
	store := &fakeInviteStore{invite: &types.Invite{
		ID:           "inv_1",
		Token:        "tok",
		OrgID:        "org_1",
		InvitedBy:    "user_1",
		InvitedEmail: "new@example.com",
	}}
	dir := &fakeDirectory{
		org:     &types.Organization{ID: "org_1", Name: "Acme"},
		profile: &types.Profile{ID: "user_1", FullName: "Dana"},
	}
	b := NewInviteBuilder(store, dir,
		NewInviteRenderer(testTemplate, "noreply@capmatch.com", "https://app.capmatch.com"),
		newTestLogger())

	out, err := b.Build(context.Background(), "inv_1")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if out.Subject != "You're invited to Acme on CapMatch" {
		t.Errorf("Subject = %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "Dana invited you to Acme") {
		t.Errorf("HTML = %s", out.HTML)
	}
}

func TestInviteBuilderDirectoryFailureUsesFallbacks(t *testing.T) {
	store := &fakeInviteStore{invite: &types.Invite{
		ID:           "inv_1",
		OrgID:        "org_1",
		InvitedBy:    "user_1",
		InvitedEmail: "new@example.com",
	}}
	dir := &fakeDirectory{
		orgErr:     errors.New("db down"),
		profileErr: errors.New("db down"),
	}
	b := NewInviteBuilder(store, dir,
		NewInviteRenderer(testTemplate, "noreply@capmatch.com", "https://app.capmatch.com"),
		newTestLogger())

	out, err := b.Build(context.Background(), "inv_1")
	if err != nil {
		t.Fatalf("Build should tolerate directory failures, got: %v", err)
	}
	if out.Subject != "You're invited on CapMatch" {
		t.Errorf("Subject = %q", out.Subject)
	}
	if !strings.Contains(out.HTML, "a member of your team") {
		t.Errorf("HTML should use fallback inviter: %s", out.HTML)
	}
}

func TestInviteBuilderMissingTemplate(t *testing.T) {
	store := &fakeInviteStore{invite: &types.Invite{ID: "inv_1", InvitedEmail: "a@example.com"}}
	b := NewInviteBuilder(store, &fakeDirectory{},
		NewInviteRenderer("", "noreply@capmatch.com", "https://app.capmatch.com"),
		newTestLogger())

	_, err := b.Build(context.Background(), "inv_1")
	if err == nil {
		t.Fatal("expected template error")
	}
	if types.CodeOf(err) != types.ErrCodeTemplateUnavailable {
		t.Errorf("error code = %s", types.CodeOf(err))
	}
}

func TestInviteBuilderInviteNotFound(t *testing.T) {
	store := &fakeInviteStore{err: types.NewAppError(types.ErrCodeNotFoundInvite, "invite not found", nil)}
	b := NewInviteBuilder(store, &fakeDirectory{},
		NewInviteRenderer(testTemplate, "noreply@capmatch.com", "https://app.capmatch.com"),
		newTestLogger())

	_, err := b.Build(context.Background(), "inv_gone")
	if types.CodeOf(err) != types.ErrCodeNotFoundInvite {
		t.Errorf("error code = %s, want not_found_invite", types.CodeOf(err))
	}
}
