package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"serve":    false,
		"ask":      false,
		"sessions": false,
		"version":  false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		assert.True(t, found, "command %q not registered", name)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	err := askCmd.Args(askCmd, nil)
	assert.Error(t, err)

	err = askCmd.Args(askCmd, []string{"what", "is", "Silverhold"})
	assert.NoError(t, err)
}
