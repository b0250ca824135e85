// Package command cobra 命令组装的小工具
package command

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewSubcommandGroup 创建一个纯分组命令：自身不执行任何逻辑，
// 不带子命令调用时打印帮助并报错。
func NewSubcommandGroup(name string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use: name,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return err
			}
			return errors.Errorf("%s requires a subcommand", name)
		},
	}
	cmd.AddCommand(subcommands...)
	return cmd
}
