package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ask/pkg/remote"
)

func TestRender(t *testing.T) {
	cfg := testConfig()
	cfg.AnswerCommand = "answer"

	d := NewRemoteDispatcher(&remote.Fake{}, cfg)
	assert.Equal(t, `answer --output json --robot-ip 10.0.0.5 -- 'it'"'"'s late?'`, d.Render("it's late?"))

	cfg.ComputeSpeaks = true
	cfg.Robot.Host = ""
	d = NewRemoteDispatcher(&remote.Fake{}, cfg)
	assert.Equal(t, "answer --output json --speak -- hello", d.Render("hello"))
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		want    Answer
		wantErr error
	}{
		{
			name:   "json",
			stdout: `{"text":"In Košice.","score":109,"origin":"retrieved","tier":"high"}`,
			want:   Answer{Text: "In Košice.", Score: 109, Origin: "retrieved", Tier: "high"},
		},
		{
			name:   "json after noise",
			stdout: "loading model...\n{\"text\":\"1969\",\"origin\":\"generated\"}\n",
			want:   Answer{Text: "1969", Origin: "generated"},
		},
		{
			name:   "plain text",
			stdout: "  The faculty was founded in 1969.\n",
			want:   Answer{Text: "The faculty was founded in 1969."},
		},
		{
			name:   "broken json falls back to text",
			stdout: "{not json",
			want:   Answer{Text: "{not json"},
		},
		{name: "empty", stdout: " \n\t", wantErr: ErrEmptyResponse},
		{name: "empty json text", stdout: `{"text":"  ","origin":"generated"}`, wantErr: ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer(tt.stdout)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDispatchErrors(t *testing.T) {
	cfg := testConfig()

	exec := &remote.Fake{Handler: func(ctx context.Context, target remote.Target, cmd string) (remote.Result, error) {
		return remote.Result{ExitCode: 2, Stderr: "conda: not found"}, nil
	}}
	_, err := NewRemoteDispatcher(exec, cfg).Dispatch(context.Background(), Utterance{Text: "q"})
	var cmdErr *remote.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 2, cmdErr.ExitCode)

	exec = &remote.Fake{Handler: func(ctx context.Context, target remote.Target, cmd string) (remote.Result, error) {
		return remote.Result{}, remote.ErrConnection
	}}
	_, err = NewRemoteDispatcher(exec, cfg).Dispatch(context.Background(), Utterance{Text: "q"})
	assert.ErrorIs(t, err, remote.ErrConnection)

	exec = &remote.Fake{}
	_, err = NewRemoteDispatcher(exec, cfg).Dispatch(context.Background(), Utterance{Text: "q"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, "compute.local", exec.Calls()[0].Target.Host)
}

func TestIsExitWord(t *testing.T) {
	words := DefaultExitWords
	assert.True(t, IsExitWord("stop", words))
	assert.True(t, IsExitWord("  Quit ", words))
	assert.True(t, IsExitWord("EXIT", words))
	assert.False(t, IsExitWord("Stop!", words))
	assert.False(t, IsExitWord("quit.", words))
	assert.False(t, IsExitWord("please stop", words))
	assert.False(t, IsExitWord("", words))
}
