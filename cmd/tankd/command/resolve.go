package command

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"winery-tank-backend/internal/tank"
)

var withTargets bool

var resolveCmd = &cobra.Command{
	Use:   "resolve [deposits.json]",
	Short: "Resolve a deposit list offline and print the tank views",
	Long: `Resolve reads a deposit list as returned by the winery backend,
from the given file or from stdin, and prints the resolved tank views.
Records failing the integrity checks are reported on stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return runResolve(in, cmd.OutOrStdout(), cmd.ErrOrStderr(), withTargets)
	},
}

func init() {
	resolveCmd.Flags().BoolVar(&withTargets, "targets", false, "include the target opened by tapping each tank")
	rootCmd.AddCommand(resolveCmd)
}

type resolvedTank struct {
	tank.View
	Open *tank.Target `json:"open,omitempty"`
}

func runResolve(in io.Reader, out, errOut io.Writer, targets bool) error {
	b, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read deposits: %w", err)
	}
	raws, err := tank.DecodeDeposits(b)
	if err != nil {
		return err
	}

	resolved := make([]resolvedTank, 0, len(raws))
	for _, raw := range raws {
		if err := tank.Validate(raw); err != nil {
			fmt.Fprintln(errOut, "warning:", err)
		}
		rt := resolvedTank{View: tank.Resolve(raw)}
		if targets {
			target := tank.Route(rt.View, tank.OpenTank())
			rt.Open = &target
		}
		resolved = append(resolved, rt)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resolved)
}
