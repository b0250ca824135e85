package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/kashguard/go-odin-auth/internal/runner"
	"github.com/kashguard/go-odin-auth/internal/session"
)

// loginOutput 登录结果的 JSON 输出
type loginOutput struct {
	BotName   string `json:"bot_name"`
	Principal string `json:"principal"`
	Address   string `json:"address"`
	Token     string `json:"token"`
	TokenOnly bool   `json:"token_only,omitempty"`
	Error     string `json:"error,omitempty"`
}

func outputFromSession(s *session.Session) loginOutput {
	return loginOutput{
		BotName:   s.BotName,
		Principal: s.PrincipalText,
		Address:   s.Address,
		Token:     s.Token,
		TokenOnly: s.TokenOnly(),
	}
}

func newLogin() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login <bot-name>",
		Short: "Authenticate a single bot and print its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			botName := args[0]

			var s *session.Session
			if force {
				s, err = a.authenticator.Login(cmd.Context(), botName)
			} else {
				s, err = a.authenticator.GetOrLogin(cmd.Context(), botName)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outputFromSession(s))
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "ignore cached session and login fresh")
	return cmd
}

func newBatchLogin() *cobra.Command {
	var maxWorkers int

	cmd := &cobra.Command{
		Use:   "batch-login <bot-name>...",
		Short: "Authenticate multiple bots concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if maxWorkers <= 0 {
				maxWorkers = a.cfg.MaxWorkers
			}

			// 每个 bot 用独立组装的客户端，互不共享连接状态
			results := runner.RunPerBot(cmd.Context(), args, maxWorkers,
				func(ctx context.Context, botName string) (*session.Session, error) {
					ba, err := newApp(a.cfg, a.log)
					if err != nil {
						return nil, err
					}
					return ba.authenticator.GetOrLogin(ctx, botName)
				})

			outputs := make([]loginOutput, 0, len(results))
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					outputs = append(outputs, loginOutput{BotName: r.BotName, Error: r.Err.Error()})
					a.log.Error().Err(r.Err).Str("bot_name", r.BotName).Msg("Login failed")
					continue
				}
				outputs = append(outputs, outputFromSession(r.Value))
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(outputs); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Errorf("%d of %d logins failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "concurrency limit (default from config)")
	return cmd
}
