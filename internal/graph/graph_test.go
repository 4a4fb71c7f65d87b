package graph

import (
	"testing"

	"gotest.tools/v3/assert"
)

func Test_CommandsInvokingMono(t *testing.T) {
	type testCase struct {
		command string
		match   bool
	}
	testCases := []testCase{
		{
			"mono run foo",
			true,
		},
		{
			"rm -rf ~/.cache/pnpm && mono run foo && rm -rf ~/.npm",
			true,
		},
		{
			"FLAG=true mono run foo",
			true,
		},
		{
			"npx mono run foo",
			true,
		},
		{
			"echo starting; mono foo; echo done",
			true,
		},
		// Someone determined to invoke the binary directly will always be
		// able to work around this check.
		{
			"./node_modules/.bin/mono foo",
			false,
		},
		{
			"rm -rf ~/.cache/pnpm && rm -rf ~/.cache/mono && rm -rf ~/.npm && rm -rf ~/.pnpm-store",
			false,
		},
	}

	for _, tc := range testCases {
		assert.Equal(t, commandLooksLikeMono(tc.command), tc.match, tc.command)
	}
}
