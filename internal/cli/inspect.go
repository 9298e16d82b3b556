package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cangen/pkg/stable"
	"github.com/roach88/cangen/pkg/wire"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Map   string // map name whose entries to list
	Start int
	Limit int
}

// MapSummary describes one declared stable map.
type MapSummary struct {
	ID        uint8  `json:"id"`
	Name      string `json:"name"`
	KeyType   string `json:"key_type"`
	ValueType string `json:"value_type"`
	Len       uint64 `json:"len"`
}

// EntryView is one decoded stable map entry.
type EntryView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// InspectResult is the structured output of inspect.
type InspectResult struct {
	Maps    []MapSummary `json:"maps"`
	Entries []EntryView  `json:"entries,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <stable-db>",
		Short: "Inspect the stable maps of a database",
		Long: `List the stable maps declared in a database with their entry counts.
With --map, also print the entries of one map in key order, decoded from
the wire format.

Examples:
  cangen inspect ./canister.db
  cangen inspect ./canister.db --map users --limit 20`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Map, "map", "", "list the entries of this map")
	cmd.Flags().IntVar(&opts.Start, "start", 0, "skip this many entries")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum entries to list (0 = all)")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Opening a missing path would create an empty database.
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", path))
	}

	st, err := stable.Open(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	decls, err := st.Declarations(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	result := InspectResult{Maps: make([]MapSummary, 0, len(decls))}
	var selected *MapSummary
	for _, d := range decls {
		n, err := st.Len(ctx, d.MapID)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		result.Maps = append(result.Maps, MapSummary{
			ID: d.MapID, Name: d.Name, KeyType: d.KeyType, ValueType: d.ValueType, Len: n,
		})
		if d.Name == opts.Map {
			selected = &result.Maps[len(result.Maps)-1]
		}
	}

	if opts.Map != "" {
		if selected == nil {
			return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("no stable map named %q", opts.Map))
		}
		entries, err := st.Items(ctx, selected.ID, opts.Start, opts.Limit)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error())
		}
		result.Entries = make([]EntryView, len(entries))
		for i, e := range entries {
			if result.Entries[i], err = viewEntry(e); err != nil {
				return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("map %s entry %d: %v", opts.Map, opts.Start+i, err))
			}
		}
	}

	if formatter.Structured() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if len(result.Maps) == 0 {
		fmt.Fprintln(w, "No stable maps declared.")
		return nil
	}
	fmt.Fprintln(w, "Stable maps:")
	for _, m := range result.Maps {
		fmt.Fprintf(w, "  %d %s: %d entr%s\n", m.ID, m.Name, m.Len, plural(m.Len, "y", "ies"))
	}
	if opts.Map != "" {
		fmt.Fprintf(w, "\nEntries of %s:\n", opts.Map)
		for _, e := range result.Entries {
			fmt.Fprintf(w, "  %s => %s\n", e.Key, e.Value)
		}
	}
	return nil
}

func viewEntry(e stable.Entry) (EntryView, error) {
	k, err := wire.Unmarshal(e.Key)
	if err != nil {
		return EntryView{}, fmt.Errorf("key: %w", err)
	}
	v, err := wire.Unmarshal(e.Value)
	if err != nil {
		return EntryView{}, fmt.Errorf("value: %w", err)
	}
	return EntryView{Key: wire.Format(k), Value: wire.Format(v)}, nil
}

func plural(n uint64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
