package main

import (
	"github.com/spf13/cobra"

	"github.com/raphi011/gw/internal/output"
)

func newShellInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell-init",
		Short: "Output shell integration functions",
		Args:  cobra.NoArgs,
		Long: `Output a shell function that wraps gw and cds into the selected
worktree.

Without the wrapper, gw can only print the selected path (a subprocess
cannot change its parent shell's directory).`,
		Example: `  eval "$(gw shell-init)"              # add to ~/.bashrc or ~/.zshrc
  gw shell-init | source               # fish: see the fish section of the output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := output.FromContext(cmd.Context())
			p.Print("# bash/zsh\n" + bashZshInit + "\n# fish\n" + fishInit)
			return nil
		},
	}
}

const bashZshInit = `gw() {
  local dest
  dest="$(command gw "$@" </dev/tty)" || return $?
  if [ -n "$dest" ]; then
    cd "$dest" || return $?
  fi
}
`

const fishInit = `function gw
  set -l dest (command gw $argv </dev/tty | string collect)
  set -l gw_status $status
  if test $gw_status -ne 0
    return $gw_status
  end
  if test -n "$dest"
    cd "$dest"
  end
end
`
