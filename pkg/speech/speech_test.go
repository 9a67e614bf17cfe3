package speech

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-ask/internal/log"
	"github.com/teslashibe/go-ask/pkg/remote"
)

var robot = remote.Target{Host: "10.0.0.7", Credential: remote.Credential{User: "nao", Password: "nao"}}

func TestRender(t *testing.T) {
	a := NewRemoteActor(&remote.Fake{}, robot, WithLogger(log.Discard()))

	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			"plain",
			Plain("Founded in 1969."),
			"python2 /home/nao/pepper_codes/bilozor/outloud.py --ip localhost 'Founded in 1969.'",
		},
		{
			"greeting",
			Greeting("Hello!"),
			DefaultProgram + " --ip localhost --greeting 'Hello!'",
		},
		{
			"quotes are escaped",
			Plain(`It's "great"; rm -rf /`),
			DefaultProgram + ` --ip localhost 'It'"'"'s "great"; rm -rf /'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Render(tt.cmd))
		})
	}
}

func TestRenderCustomProgram(t *testing.T) {
	a := NewRemoteActor(&remote.Fake{}, robot,
		WithProgram("say"),
		WithLocalIP("127.0.0.1"),
		WithLogger(log.Discard()),
	)
	assert.Equal(t, "say --ip 127.0.0.1 hi", a.Render(Plain("hi")))
}

func TestSpeakRunsOnRobot(t *testing.T) {
	fake := &remote.Fake{}
	a := NewRemoteActor(fake, robot, WithLogger(log.Discard()))

	require.NoError(t, a.Speak(context.Background(), Plain("hello")))

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, robot, calls[0].Target)
	assert.Contains(t, calls[0].Command, "hello")
}

func TestSpeakFailures(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		fake := &remote.Fake{}
		a := NewRemoteActor(fake, robot, WithLogger(log.Discard()))

		assert.ErrorIs(t, a.Speak(context.Background(), Plain("  ")), ErrEmptyText)
		assert.Empty(t, fake.Calls())
	})

	t.Run("transport", func(t *testing.T) {
		fake := &remote.Fake{Handler: func(context.Context, remote.Target, string) (remote.Result, error) {
			return remote.Result{}, remote.ErrConnection
		}}
		a := NewRemoteActor(fake, robot, WithLogger(log.Discard()))

		assert.ErrorIs(t, a.Speak(context.Background(), Greeting("hi")), remote.ErrConnection)
	})

	t.Run("exit status", func(t *testing.T) {
		fake := &remote.Fake{Handler: func(context.Context, remote.Target, string) (remote.Result, error) {
			return remote.Result{ExitCode: 1, Stderr: "Can't connect to Naoqi"}, nil
		}}
		a := NewRemoteActor(fake, robot, WithLogger(log.Discard()))

		err := a.Speak(context.Background(), Plain("hi"))
		var cmdErr *remote.CommandError
		require.True(t, errors.As(err, &cmdErr))
		assert.Equal(t, 1, cmdErr.ExitCode)
	})
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Speak(context.Background(), Greeting("a"))
	r.Speak(context.Background(), Plain("b"))

	assert.Equal(t, []Command{Greeting("a"), Plain("b")}, r.Commands())
}
