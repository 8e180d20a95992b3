package commitmsg

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeService struct {
	response  string
	err       error
	gotPrompt string
}

func (f *fakeService) Request(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.response, f.err
}

func TestPrepareUsesServiceMessage(t *testing.T) {
	svc := &fakeService{response: "Fix greeting typo in handler\n\n- correct the spelling of hello"}
	p := New(svc, "", "", 60000)

	msg := p.Prepare(context.Background(), " M handler.go", "diff text", "")
	if !strings.HasPrefix(msg, "Fix greeting typo in handler") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(svc.gotPrompt, "diff text") {
		t.Error("prompt should include the diff")
	}
}

func TestPrepareFallsBackOnServiceError(t *testing.T) {
	svc := &fakeService{err: errors.New("unavailable")}
	p := New(svc, "", "", 60000)

	if msg := p.Prepare(context.Background(), "status", "diff", ""); msg != DefaultMessage {
		t.Errorf("msg = %q, want fallback", msg)
	}
}

func TestPrepareCustomFallback(t *testing.T) {
	svc := &fakeService{err: errors.New("unavailable")}
	p := New(svc, "", "chore: automated repair", 60000)

	if msg := p.Prepare(context.Background(), "s", "d", ""); msg != "chore: automated repair" {
		t.Errorf("msg = %q", msg)
	}
}

func TestPrepareSwitchesToStatForLargeDiff(t *testing.T) {
	svc := &fakeService{response: "Add tests"}
	p := New(svc, "", "", 10)

	p.Prepare(context.Background(), "status", strings.Repeat("x", 100), " file | +1 -0")
	if strings.Contains(svc.gotPrompt, "xxxxx") {
		t.Error("oversized diff should not be inlined")
	}
	if !strings.Contains(svc.gotPrompt, "file | +1 -0") {
		t.Error("prompt should carry the diffstat instead")
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Fix the bug", "Fix the bug"},
		{"```\nFix the bug\n```", "Fix the bug"},
		{"", ""},
		{"   \n", ""},
		{strings.Repeat("s", 73) + "\n\nbody", ""},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeOverlongSubjectRejected(t *testing.T) {
	svc := &fakeService{response: strings.Repeat("a", 100)}
	p := New(svc, "", "", 60000)
	if msg := p.Prepare(context.Background(), "s", "d", ""); msg != DefaultMessage {
		t.Errorf("msg = %q, want fallback", msg)
	}
}
