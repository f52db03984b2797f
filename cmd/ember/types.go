package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/estree"
	"ember/internal/irgen"
	"ember/internal/pipeline"
	"ember/internal/source"
	"ember/internal/types"
)

var typesCmd = &cobra.Command{
	Use:   "types <file.json>",
	Short: "Normalize the type aliases of a file and dump the canonical type table",
	Args:  cobra.ExactArgs(1),
	RunE:  runTypes,
}

func runTypes(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd, args)
	if err != nil {
		return err
	}
	u, err := pipeline.LoadUnit(args[0])
	if err != nil {
		return err
	}
	fs := source.NewFileSet()
	id := fs.AddVirtual(u.Path, u.Data)
	if u.Script != nil {
		fs.SetText(id, u.Script)
	}
	prog, err := estree.Decode(id, u.Data)
	if err != nil {
		return err
	}
	bag := diag.NewBag(max(cfg.Compile.MaxDiagnostics, 1))
	tab := types.NewTable()
	aliases := types.Normalize(tab, irgen.CollectAliases(prog), diag.BagReporter{Bag: bag})
	tab.Freeze()

	if bag.Len() > 0 {
		bag.Sort()
		diagfmt.Pretty(cmd.ErrOrStderr(), bag, fs, diagfmt.PrettyOpts{Color: useColor(cfg.Output.Color)})
	}
	return writeTypes(cmd.OutOrStdout(), tab, aliases)
}

// writeTypes prints the table followed by each alias in its readable form.
func writeTypes(w io.Writer, tab *types.Table, aliases map[string]types.TypeID) error {
	if err := tab.Dump(w); err != nil {
		return err
	}
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		id := aliases[name]
		if _, err := fmt.Fprintf(w, "type %s = %s  // %s\n", name, tab.String(id), tab.Ref(id)); err != nil {
			return err
		}
	}
	return nil
}
