package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dl-alexandre/rcache/internal/utils"
	"github.com/spf13/cobra"
)

// secretNames maps the user-facing secret kinds onto keyring entries
var secretNames = map[string]string{
	"token":         utils.SecretDelegationToken,
	"client-secret": utils.SecretOAuthClientSecret,
}

func (a *App) newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage WebHDFS credentials",
		Long: `Store the WebHDFS delegation token and the OAuth2 client secret of a
profile in the system keyring (or an encrypted file when no keyring is
available). Select the profile with --profile.`,
	}

	var fromStdin bool
	setCmd := &cobra.Command{
		Use:   "set <token|client-secret> [value]",
		Short: "Store a credential",
		Example: `  rcache auth set token HAAFaGRmcwAA...
  vault read -field=secret hdfs/oauth | rcache auth set client-secret --stdin`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else if fromStdin {
				v, err := readSecret(cmd.InOrStdin())
				if err != nil {
					return a.fail(a.output(), "auth.set", err)
				}
				value = v
			}
			return a.runAuthSet(args[0], value)
		},
	}
	setCmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the value from standard input")

	clearCmd := &cobra.Command{
		Use:   "clear <token|client-secret>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuthClear(args[0])
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show which credentials are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAuthStatus()
		},
	}

	cmd.AddCommand(setCmd, clearCmd, statusCmd)
	return cmd
}

func secretName(kind string) (string, error) {
	name, ok := secretNames[kind]
	if !ok {
		return "", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			fmt.Sprintf("unknown credential %q (want token or client-secret)", kind)).Build())
	}
	return name, nil
}

func (a *App) runAuthSet(kind, value string) error {
	out := a.output()
	name, err := secretName(kind)
	if err != nil {
		return a.fail(out, "auth.set", err)
	}
	if strings.TrimSpace(value) == "" {
		return a.fail(out, "auth.set", utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
			"a value is required: pass it as an argument or use --stdin").Build()))
	}

	mgr, err := a.authManager()
	if err != nil {
		return a.fail(out, "auth.set", err)
	}
	if err := mgr.SetSecret(a.flags.Profile, name, value); err != nil {
		return a.fail(out, "auth.set", err)
	}

	return out.WriteSuccess("auth.set", actionView{
		Message: fmt.Sprintf("Stored %s for profile %s (%s)", kind, a.flags.Profile, mgr.StorageBackend()),
		Data: map[string]interface{}{
			"profile": a.flags.Profile,
			"secret":  kind,
			"storage": mgr.StorageBackend(),
		},
	})
}

func (a *App) runAuthClear(kind string) error {
	out := a.output()
	name, err := secretName(kind)
	if err != nil {
		return a.fail(out, "auth.clear", err)
	}

	mgr, err := a.authManager()
	if err != nil {
		return a.fail(out, "auth.clear", err)
	}
	if err := mgr.DeleteSecret(a.flags.Profile, name); err != nil {
		return a.fail(out, "auth.clear", err)
	}

	return out.WriteSuccess("auth.clear", actionView{
		Message: fmt.Sprintf("Removed %s for profile %s", kind, a.flags.Profile),
		Data: map[string]interface{}{
			"profile": a.flags.Profile,
			"secret":  kind,
		},
	})
}

func (a *App) runAuthStatus() error {
	out := a.output()
	mgr, err := a.authManager()
	if err != nil {
		return a.fail(out, "auth.status", err)
	}

	status := map[string]interface{}{
		"profile": a.flags.Profile,
		"storage": mgr.StorageBackend(),
	}
	for kind, name := range secretNames {
		v, err := mgr.LookupSecret(a.flags.Profile, name)
		if err != nil {
			return a.fail(out, "auth.status", err)
		}
		status[kind] = v != ""
	}
	if warning := mgr.StorageWarning(); warning != "" {
		out.AddWarning("STORAGE", warning, "info")
	}
	return out.WriteSuccess("auth.status", authStatusView(status))
}

type authStatusView map[string]interface{}

func (v authStatusView) TextLines() []string {
	return []string{
		fmt.Sprintf("Profile: %v", v["profile"]),
		fmt.Sprintf("Storage: %v", v["storage"]),
		fmt.Sprintf("Delegation token: %s", stored(v["token"])),
		fmt.Sprintf("OAuth2 client secret: %s", stored(v["client-secret"])),
	}
}

func stored(v interface{}) string {
	if b, ok := v.(bool); ok && b {
		return "stored"
	}
	return "not set"
}

func readSecret(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && isTerminal(f) {
		fmt.Fprint(os.Stderr, "Value: ")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading value: %w", err)
	}
	return strings.TrimSpace(line), nil
}
