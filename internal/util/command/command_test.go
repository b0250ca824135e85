package command_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashguard/go-odin-auth/internal/util/command"
)

func TestNewSubcommandGroup(t *testing.T) {
	ran := false
	sub := &cobra.Command{
		Use: "child",
		RunE: func(_ *cobra.Command, _ []string) error {
			ran = true
			return nil
		},
	}

	group := command.NewSubcommandGroup("group", sub)
	group.SetArgs([]string{"child"})
	require.NoError(t, group.Execute())
	assert.True(t, ran)
}

func TestNewSubcommandGroupWithoutSubcommand(t *testing.T) {
	group := command.NewSubcommandGroup("group", &cobra.Command{Use: "child"})
	group.SetArgs([]string{})
	group.SilenceUsage = true
	group.SilenceErrors = true

	err := group.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a subcommand")
}
