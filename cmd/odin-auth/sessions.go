package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kashguard/go-odin-auth/internal/session"
	"github.com/kashguard/go-odin-auth/internal/util/command"
)

// sessionInfo sessions list 的一行输出
type sessionInfo struct {
	File      string `json:"file"`
	BotName   string `json:"bot_name"`
	Principal string `json:"principal"`
	Address   string `json:"address"`
	SavedAt   string `json:"saved_at"`
}

func newSessions() *cobra.Command {
	return command.NewSubcommandGroup("sessions",
		newSessionsList(),
		newSessionsClear(),
	)
}

func newSessionsList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached session files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			paths, err := filepath.Glob(filepath.Join(a.cfg.SessionDir, "session_*.json"))
			if err != nil {
				return err
			}

			infos := make([]sessionInfo, 0, len(paths))
			for _, path := range paths {
				raw, err := os.ReadFile(path)
				if err != nil {
					a.log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable session file")
					continue
				}
				var rec struct {
					BotName   string `json:"bot_name"`
					Principal string `json:"bot_principal_text"`
					Address   string `json:"address"`
					SavedAt   int64  `json:"saved_at"`
				}
				if err := json.Unmarshal(raw, &rec); err != nil {
					a.log.Warn().Err(err).Str("path", path).Msg("Skipping malformed session file")
					continue
				}
				infos = append(infos, sessionInfo{
					File:      filepath.Base(path),
					BotName:   rec.BotName,
					Principal: rec.Principal,
					Address:   rec.Address,
					SavedAt:   time.Unix(rec.SavedAt, 0).UTC().Format(time.RFC3339),
				})
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		},
	}
}

func newSessionsClear() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [bot-name]",
		Short: "Delete cached session files (all, or a single bot's)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				path := a.cache.Path(args[0])
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
				a.log.Info().Str("path", path).Msg("Session removed")
				return nil
			}

			paths, err := filepath.Glob(filepath.Join(a.cfg.SessionDir, "session_*.json"))
			if err != nil {
				return err
			}
			removed := 0
			for _, path := range paths {
				if !cacheOwnsFile(a.cache, path) {
					continue
				}
				if err := os.Remove(path); err != nil {
					a.log.Warn().Err(err).Str("path", path).Msg("Failed to remove session file")
					continue
				}
				removed++
			}
			a.log.Info().Int("removed", removed).Msg("Sessions cleared")
			return nil
		},
	}
}

// cacheOwnsFile 判断会话文件是否属于当前网络的缓存。
// 文件名后缀没法可靠区分网络（bot 名本身可以叫 x_testing），
// 所以读出文件里的 bot_name，重算该 bot 在本缓存下的路径来比对。
// 读不出 bot_name 的文件一律不动。
func cacheOwnsFile(cache *session.Cache, path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var rec struct {
		BotName string `json:"bot_name"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || rec.BotName == "" {
		return false
	}
	return cache.Path(rec.BotName) == path
}
