package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/FlavienRemy/csv-merger/internal/merger/engine"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkglog"
	"github.com/FlavienRemy/csv-merger/internal/pkg/pkgtable"
)

const stdio = "-"

type options struct {
	primary      string
	secondary    string
	primaryKey   string
	secondaryKey string
	mode         string
	trimSpace    bool
	ignoreCase   bool
	delimiter    string
	outDelimiter string
	out          string
	report       string
	logLevel     string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "csvmerge --primary A.csv --secondary B.csv --primary-key ID --secondary-key ID",
		Short: "Join two CSV files on a key column",
		Long: `Join a primary and a secondary CSV file on one key column each.

Every output row has the primary headers followed by the secondary columns the
primary lacks. When both files share a column the table the row is based on
wins. Only the first secondary row of a repeated key takes part in the join.
Use - as a path to read that table from stdin.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pkglog.InitLoggingWithWriter(stderr, pkglog.ParseLevel(opts.logLevel))
			return run(cmd.Context(), opts, stdin, stdout, stderr)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.primary, "primary", "", "primary CSV path, - for stdin")
	flags.StringVar(&opts.secondary, "secondary", "", "secondary CSV path, - for stdin")
	flags.StringVar(&opts.primaryKey, "primary-key", "", "join column of the primary table")
	flags.StringVar(&opts.secondaryKey, "secondary-key", "", "join column of the secondary table")
	flags.StringVar(&opts.mode, "mode", string(engine.ModeLeft), "join mode: left, right, inner or outer")
	flags.BoolVar(&opts.trimSpace, "trim-space", false, "ignore surrounding white space when comparing keys")
	flags.BoolVar(&opts.ignoreCase, "ignore-case", false, "compare keys case-insensitively")
	flags.StringVar(&opts.delimiter, "delimiter", "auto", "input delimiter: auto, tab or a single character")
	flags.StringVar(&opts.outDelimiter, "out-delimiter", ",", "output delimiter: tab or a single character")
	flags.StringVarP(&opts.out, "out", "o", stdio, "output path, - for stdout")
	flags.StringVar(&opts.report, "report", "yaml", "summary written to stderr: yaml or none")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	_ = cmd.MarkFlagRequired("primary")
	_ = cmd.MarkFlagRequired("secondary")

	return cmd
}

func (o *options) validate() error {
	if o.primary == stdio && o.secondary == stdio {
		return errors.New("only one table can be read from stdin")
	}
	switch strings.ToLower(o.report) {
	case "yaml", "none":
	default:
		return fmt.Errorf("unknown report format %q", o.report)
	}
	return nil
}

func run(ctx context.Context, opts *options, stdin io.Reader, stdout, stderr io.Writer) error {
	if err := opts.validate(); err != nil {
		return err
	}

	inDelim, err := pkgtable.ParseDelimiter(opts.delimiter)
	if err != nil {
		return err
	}
	outDelim, err := pkgtable.ParseDelimiter(opts.outDelimiter)
	if err != nil || outDelim == 0 {
		return fmt.Errorf("%w: %q", pkgtable.ErrBadDelimiter, opts.outDelimiter)
	}

	mode, err := engine.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	spec := engine.Spec{
		PrimaryKey:   opts.primaryKey,
		SecondaryKey: opts.secondaryKey,
		Mode:         mode,
		Match: engine.MatchOptions{
			TrimSpace:  opts.trimSpace,
			IgnoreCase: opts.ignoreCase,
		},
	}

	parseOpts := pkgtable.ParseOptions{Delimiter: inDelim}
	var primary, secondary *pkgtable.Table

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := loadTable(gctx, opts.primary, stdin, parseOpts)
		primary = t
		return err
	})
	g.Go(func() error {
		t, err := loadTable(gctx, opts.secondary, stdin, parseOpts)
		secondary = t
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	res, err := engine.Merge(primary, secondary, spec)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "merge completed",
		"mode", mode,
		"merged_rows", res.Stats.MergedRows,
		"shadowed_rows", res.Stats.ShadowedRows,
	)
	if res.Stats.ShadowedRows > 0 {
		slog.WarnContext(ctx, "secondary key repeats; only the first row of each key was used",
			"secondary_key", spec.SecondaryKey,
			"shadowed_rows", res.Stats.ShadowedRows,
		)
	}

	if err := writeResult(opts.out, stdout, res.Table, pkgtable.WriteOptions{Delimiter: outDelim}); err != nil {
		return err
	}

	if strings.EqualFold(opts.report, "yaml") {
		return writeReport(stderr, newReport(primary, secondary, spec, res, opts.out))
	}
	return nil
}

func loadTable(ctx context.Context, path string, stdin io.Reader, opts pkgtable.ParseOptions) (*pkgtable.Table, error) {
	if path == stdio {
		return pkgtable.Parse(ctx, "stdin", stdin, opts)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return pkgtable.Parse(ctx, path, f, opts)
}

func writeResult(path string, stdout io.Writer, t *pkgtable.Table, opts pkgtable.WriteOptions) (err error) {
	if path == stdio {
		return pkgtable.Write(stdout, t, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return pkgtable.Write(f, t, opts)
}

type report struct {
	Primary         string      `yaml:"primary"`
	Secondary       string      `yaml:"secondary"`
	Output          string      `yaml:"output"`
	Mode            engine.Mode `yaml:"mode"`
	PrimaryKey      string      `yaml:"primary_key"`
	SecondaryKey    string      `yaml:"secondary_key"`
	TrimSpace       bool        `yaml:"trim_space,omitempty"`
	IgnoreCase      bool        `yaml:"ignore_case,omitempty"`
	ConflictColumns []string    `yaml:"conflict_columns"`
	AddedColumns    []string    `yaml:"added_columns"`
	Stats           reportStats `yaml:"stats"`
}

type reportStats struct {
	PrimaryRows     int `yaml:"primary_rows"`
	SecondaryRows   int `yaml:"secondary_rows"`
	MergedRows      int `yaml:"merged_rows"`
	ConflictColumns int `yaml:"conflict_columns"`
	MatchedRows     int `yaml:"matched_rows"`
	ShadowedRows    int `yaml:"shadowed_rows"`
}

func newReport(primary, secondary *pkgtable.Table, spec engine.Spec, res engine.Result, out string) report {
	if out == stdio {
		out = "stdout"
	}

	return report{
		Primary:         primary.Name(),
		Secondary:       secondary.Name(),
		Output:          out,
		Mode:            spec.Mode,
		PrimaryKey:      spec.PrimaryKey,
		SecondaryKey:    spec.SecondaryKey,
		TrimSpace:       spec.Match.TrimSpace,
		IgnoreCase:      spec.Match.IgnoreCase,
		ConflictColumns: res.ConflictColumns,
		AddedColumns:    res.AddedColumns,
		Stats: reportStats{
			PrimaryRows:     res.Stats.PrimaryRows,
			SecondaryRows:   res.Stats.SecondaryRows,
			MergedRows:      res.Stats.MergedRows,
			ConflictColumns: res.Stats.ConflictColumns,
			MatchedRows:     res.Stats.MatchedRows,
			ShadowedRows:    res.Stats.ShadowedRows,
		},
	}
}

func writeReport(w io.Writer, r report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
