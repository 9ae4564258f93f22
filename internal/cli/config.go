package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dl-alexandre/rcache/internal/config"
	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/spf13/cobra"
)

func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Commands for inspecting and creating the rcache configuration file",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  "Display the configuration after the file and RCACHE_* environment variables are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.output().WriteSuccess("config.show", configView{Config: a.cfg})
		},
	}

	pathCmd := &cobra.Command{
		Use:         "path",
		Short:       "Print the configuration file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			path, err := a.configPath()
			if err != nil {
				return a.fail(out, "config.path", err)
			}
			return out.WriteSuccess("config.path", pathView{Path: path})
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a configuration file with the default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.output()
			path, err := a.configPath()
			if err != nil {
				return a.fail(out, "config.init", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return a.fail(out, "config.init", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
					fmt.Sprintf("%s already exists; use --force to overwrite", path)).Build()))
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return a.fail(out, "config.init", err)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return a.fail(out, "config.init", utils.WrapAppError(
					utils.NewCLIError(utils.ErrCodeInvalidConfig, err.Error()).Build(), err))
			}
			return out.WriteSuccess("config.init", actionView{
				Message: "Wrote " + path,
				Data:    map[string]interface{}{"path": path},
			})
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(showCmd, pathCmd, initCmd)
	return cmd
}

func (a *App) configPath() (string, error) {
	if a.flags.Config != "" {
		return a.flags.Config, nil
	}
	return config.GetConfigPath()
}

type pathView struct {
	Path string `json:"path"`
}

func (v pathView) TextLines() []string { return []string{v.Path} }

// configView prints the configuration as TOML in text mode
type configView struct {
	*config.Config
}

func (v configView) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Config)
}

func (v configView) TextLines() []string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v.Config); err != nil {
		return []string{"# " + err.Error()}
	}
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}
