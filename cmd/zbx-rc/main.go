// Command zbx-rc forwards Zabbix alert notifications into Rocket.Chat. It is
// designed to run as a Zabbix media script: one process invocation per
// notification, exiting non-zero with a one-line message on any fatal error.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"zbx-rc/internal/config"
	"zbx-rc/internal/rocketchat"
	"zbx-rc/internal/services"
	"zbx-rc/internal/sysutil"
	"zbx-rc/internal/zabbix"
)

const version = "0.2.0"

var (
	cfgPath string
	debug   bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Fatal().Msg(err.Error())
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zbx-rc",
		Short:         "Send Zabbix alert notifications to Rocket.Chat",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
			// Optional .env overlay for credentials; a missing file is fine.
			_ = godotenv.Load()
			if debug || sysutil.IsTruthy(os.Getenv("ZBXRC_DEBUG")) {
				debug = true
			}
			if debug {
				sysutil.SetLogLevel("debug")
			} else {
				sysutil.SetLogLevel("info")
			}
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newSendCmd(), newAuthCmd(), newInstallCmd())
	return root
}

// loadConfig reads the config file and applies the environment overlay for
// credentials, so secrets can be kept out of the file when preferred.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg.RocketChat.UID = sysutil.FirstNonEmpty(os.Getenv("ZBXRC_UID"), cfg.RocketChat.UID)
	cfg.RocketChat.Token = sysutil.FirstNonEmpty(os.Getenv("ZBXRC_TOKEN"), cfg.RocketChat.Token)
	cfg.Zabbix.Username = sysutil.FirstNonEmpty(os.Getenv("ZBXRC_ZBX_USERNAME"), cfg.Zabbix.Username)
	cfg.Zabbix.Password = sysutil.FirstNonEmpty(os.Getenv("ZBXRC_ZBX_PASSWORD"), cfg.Zabbix.Password)
	cfg.Debug = debug
	return cfg, nil
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <recipient> <subject> <message>",
		Short: "Send a message to a Rocket.Chat user (@name) or channel (#name)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireChatAuth(); err != nil {
				return err
			}
			d := &services.Dispatcher{
				Cfg:    cfg,
				Chat:   rocketchat.New(cfg.APIBase(), cfg.RocketChat.UID, cfg.RocketChat.Token),
				Graphs: zabbix.New(cfg.Zabbix),
			}
			return d.Send(cmd.Context(), args[0], args[1], args[2])
		},
	}
}

func newAuthCmd() *cobra.Command {
	var (
		username string
		password string
		update   bool
	)
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate to Rocket.Chat and obtain a user id and token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			client := rocketchat.New(cfg.APIBase(), "", "")
			uid, token, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Printf("Received auth: id %q; token %q\n", uid, token)
			if update {
				if err := config.SaveAuth(cfgPath, uid, token); err != nil {
					return err
				}
				log.Info().Str("path", cfgPath).Msg("credentials stored in config file")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Rocket.Chat username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Rocket.Chat password")
	cmd.Flags().BoolVar(&update, "update", false, "store the obtained credentials in the config file")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newInstallCmd() *cobra.Command {
	var (
		dir   string
		group string
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision the default configuration skeleton",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Install(dir, group)
			if err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("configuration installed")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "config-dir", "/etc/zbx-rc", "directory for the config file")
	cmd.Flags().StringVar(&group, "group", "zabbix", "owning group for the config file (empty to skip chown)")
	return cmd
}
