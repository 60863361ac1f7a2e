package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mailroom/internal/types"
)

// fakeProvider is a scriptable EmailProvider: each call consumes the next
// scripted result.
type fakeProvider struct {
	results []providerResult
	calls   int
	inputs  []types.SendInput
}

type providerResult struct {
	id  string
	err error
}

func (f *fakeProvider) Send(_ context.Context, input types.SendInput) (string, error) {
	f.inputs = append(f.inputs, input)
	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		return "", errors.New("unscripted provider call")
	}
	return f.results[idx].id, f.results[idx].err
}

func rateLimitErr() error {
	return types.NewAppError(types.ErrCodeUpstreamRateLimited, "rate limited", nil)
}

func newTestSender(p *fakeProvider, dryRun bool, policy *RecipientPolicy) (*Sender, *[]time.Duration) {
	var sleeps []time.Duration
	if policy == nil {
		policy = NewRecipientPolicy("", false, "", newTestLogger())
	}
	s := NewSender(SenderConfig{
		Provider:    p,
		Recipients:  policy,
		Throttle:    500 * time.Millisecond,
		MaxAttempts: 3,
		DryRun:      dryRun,
		Logger:      newTestLogger(),
	}, WithSleepFunc(func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}))
	return s, &sleeps
}

func TestSenderSuccessFirstAttempt(t *testing.T) {
	provider := &fakeProvider{results: []providerResult{{id: "msg_1"}}}
	sender, sleeps := newTestSender(provider, false, nil)

	msgID, err := sender.Send(context.Background(), types.SendInput{To: "a@example.com"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msgID != "msg_1" {
		t.Errorf("msgID = %q", msgID)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	// One throttle sleep before the single attempt.
	if len(*sleeps) != 1 || (*sleeps)[0] != 500*time.Millisecond {
		t.Errorf("sleeps = %v, want [500ms]", *sleeps)
	}
}

func TestSenderRetriesOnRateLimitWithScaledDelay(t *testing.T) {
	provider := &fakeProvider{results: []providerResult{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{id: "msg_ok"},
	}}
	sender, sleeps := newTestSender(provider, false, nil)

	msgID, err := sender.Send(context.Background(), types.SendInput{To: "a@example.com"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if msgID != "msg_ok" {
		t.Errorf("msgID = %q", msgID)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	want := []time.Duration{500 * time.Millisecond, 1 * time.Second, 1500 * time.Millisecond}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, (*sleeps)[i], want[i])
		}
	}
}

func TestSenderGivesUpAfterMaxAttempts(t *testing.T) {
	provider := &fakeProvider{results: []providerResult{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{err: rateLimitErr()},
	}}
	sender, _ := newTestSender(provider, false, nil)

	_, err := sender.Send(context.Background(), types.SendInput{To: "a@example.com"})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if types.CodeOf(err) != types.ErrCodeUpstreamRateLimited {
		t.Errorf("error code = %s", types.CodeOf(err))
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want exactly 3", provider.calls)
	}
}

func TestSenderTerminalErrorNotRetried(t *testing.T) {
	provider := &fakeProvider{results: []providerResult{
		{err: types.NewAppError(types.ErrCodeUpstreamEmailProvider, "rejected", nil)},
	}}
	sender, _ := newTestSender(provider, false, nil)

	_, err := sender.Send(context.Background(), types.SendInput{To: "a@example.com"})
	if err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, terminal errors must not retry", provider.calls)
	}
}

func TestSenderDryRunSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	sender, sleeps := newTestSender(provider, true, nil)

	msgID, err := sender.Send(context.Background(), types.SendInput{To: "a@example.com", Subject: "s"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !strings.HasPrefix(msgID, "dry-run-") {
		t.Errorf("msgID = %q, want dry-run synthetic id", msgID)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, dry run must not call the provider", provider.calls)
	}
	if len(*sleeps) != 0 {
		t.Errorf("sleeps = %v, dry run must not throttle", *sleeps)
	}
}

func TestSenderAppliesRecipientOverrides(t *testing.T) {
	cases := []struct {
		name   string
		policy *RecipientPolicy
		want   string
	}{
		{
			name:   "force overrides test mode",
			policy: NewRecipientPolicy("forced@example.com", true, "test@example.com", newTestLogger()),
			want:   "forced@example.com",
		},
		{
			name:   "test mode reroutes",
			policy: NewRecipientPolicy("", true, "test@example.com", newTestLogger()),
			want:   "test@example.com",
		},
		{
			name:   "test mode without recipient falls through",
			policy: NewRecipientPolicy("", true, "", newTestLogger()),
			want:   "real@example.com",
		},
		{
			name:   "no overrides",
			policy: NewRecipientPolicy("", false, "test@example.com", newTestLogger()),
			want:   "real@example.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &fakeProvider{results: []providerResult{{id: "msg_1"}}}
			sender, _ := newTestSender(provider, false, tc.policy)

			if _, err := sender.Send(context.Background(), types.SendInput{To: "real@example.com"}); err != nil {
				t.Fatalf("Send error: %v", err)
			}
			if got := provider.inputs[0].To; got != tc.want {
				t.Errorf("provider To = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSenderContextCancelledDuringThrottle(t *testing.T) {
	provider := &fakeProvider{results: []providerResult{{id: "msg_1"}}}
	policy := NewRecipientPolicy("", false, "", newTestLogger())
	sender := NewSender(SenderConfig{
		Provider:    provider,
		Recipients:  policy,
		Throttle:    500 * time.Millisecond,
		MaxAttempts: 3,
		Logger:      newTestLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sender.Send(ctx, types.SendInput{To: "a@example.com"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 after cancellation", provider.calls)
	}
}
