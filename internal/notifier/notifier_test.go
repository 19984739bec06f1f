package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	ghinternal "github.com/cexll/homework-bot/internal/github"
	ghtesting "github.com/cexll/homework-bot/internal/github/testing"
)

type recordingNotifier struct {
	name string
	err  error
	sent []string
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, text)
	return nil
}

func TestFanout_Deliver(t *testing.T) {
	primary := &recordingNotifier{name: "primary"}
	mirror := &recordingNotifier{name: "mirror"}
	f := NewFanout(zap.NewNop(), primary, mirror)

	d := f.Deliver(context.Background(), "msg")
	assert.True(t, d.OK())
	assert.Equal(t, []string{"primary", "mirror"}, d.Delivered)
	assert.Empty(t, d.Failed)
	assert.Equal(t, []string{"msg"}, primary.sent)
	assert.Equal(t, []string{"msg"}, mirror.sent)
	assert.Equal(t, []string{"primary", "mirror"}, f.Channels())
}

func TestFanout_MirrorFailureDoesNotFailDelivery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	primary := &recordingNotifier{name: "primary"}
	mirror := &recordingNotifier{name: "mirror", err: errors.New("boom")}

	d := NewFanout(zap.New(core), primary, mirror).Deliver(context.Background(), "msg")
	assert.True(t, d.OK())
	assert.Equal(t, []string{"primary"}, d.Delivered)
	require.Contains(t, d.Failed, "mirror")
	assert.Equal(t, 1, logs.FilterMessage("failed to send message").Len())
}

func TestFanout_PrimaryFailure(t *testing.T) {
	primary := &recordingNotifier{name: "primary", err: errors.New("down")}
	mirror := &recordingNotifier{name: "mirror"}

	d := NewFanout(nil, primary, mirror).Deliver(context.Background(), "msg")
	assert.False(t, d.OK())
	assert.Contains(t, d.PrimaryErr.Error(), "primary: down")
	assert.Equal(t, []string{"mirror"}, d.Delivered)
}

func TestGitHubIssue_Notify(t *testing.T) {
	srv := ghtesting.NewMockGitHubServer()
	defer srv.Close()

	commenter, err := ghinternal.NewIssueCommenter(ghinternal.StaticToken("ghp_test"),
		ghinternal.NewClientFactory(srv.Client(), srv.URL), "owner/repo", 3)
	require.NoError(t, err)

	n := NewGitHubIssue(commenter)
	assert.Equal(t, "github:owner/repo#3", n.Name())
	require.NoError(t, n.Notify(context.Background(), "mirrored"))
	assert.Equal(t, []string{"mirrored"}, srv.Comments())
}

func TestFanout_RedactsSecretsInErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	cause := errors.New("Post https://api.telegram.org/bot123:secret/sendMessage: timeout")
	primary := &recordingNotifier{name: "telegram", err: cause}

	f := NewFanout(zap.New(core), primary)
	f.RedactSecrets("", "123:secret")
	d := f.Deliver(context.Background(), "msg")

	require.Error(t, d.PrimaryErr)
	assert.NotContains(t, d.PrimaryErr.Error(), "123:secret")
	assert.Contains(t, d.PrimaryErr.Error(), "bot[REDACTED]/sendMessage")
	assert.ErrorIs(t, d.PrimaryErr, cause)
	assert.NotContains(t, d.Failed["telegram"].Error(), "123:secret")

	entries := logs.FilterMessage("failed to send message").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap()["error"], "123:secret")
}
