package cli

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/yingtu35/parker/internal/export"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff OLD_MANIFEST NEW_MANIFEST",
		Short: "List screenshots that changed between two manifest.json files",
		Long: `List screenshots that were added, removed or whose content hash changed
between two runs. Exits 1 when anything differs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, err := export.ReadManifest(args[0])
			if err != nil {
				return err
			}
			next, err := export.ReadManifest(args[1])
			if err != nil {
				return err
			}

			changes := export.Compare(prev, next)
			out := cmd.OutOrStdout()
			counts := map[export.ChangeKind]int{}
			tbl := table.New("Change", "File", "URL", "Old", "New").WithWriter(out)
			for _, c := range changes {
				counts[c.Kind]++
				if c.Kind != export.ChangeUnchanged {
					tbl.AddRow(c.Kind, c.Filename, c.URL, c.OldHash, c.NewHash)
				}
			}
			if export.HasDifferences(changes) {
				tbl.Print()
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "%d changed, %d added, %d removed, %d unchanged\n",
				counts[export.ChangeChanged], counts[export.ChangeAdded], counts[export.ChangeRemoved], counts[export.ChangeUnchanged])

			if export.HasDifferences(changes) {
				return &exitError{code: ExitPartial, err: fmt.Errorf("%d screenshots differ", len(changes)-counts[export.ChangeUnchanged])}
			}
			return nil
		},
	}
}
