package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/coinfolio"
	"github.com/google/subcommands"
)

// writeFile calls 'write' on the file 'name', or on stdout when name is "-".
func writeFile(name string, write func(io.Writer) error) error {
	if name == "-" {
		return write(stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// notice prints a confirmation, on stderr when stdout carries the file.
func notice(output, msg string) {
	if output == "-" {
		fmt.Fprintln(stderr, msg)
		return
	}
	fmt.Fprintln(stdout, msg)
}

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the portfolio to a JSON file" }
func (*exportCmd) Usage() string {
	return `cpt export [-o <file>]

  Writes the holdings and their total value at live prices to a JSON file,
  named crypto-portfolio-<date>.json by default. Use -o - for stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, - for stdout")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	// without live prices the total value is 0, the failure is logged.
	s.refresh(ctx)

	output := c.output
	if output == "" {
		output = coinfolio.ExportFilename(now())
	}
	if err := writeFile(output, s.tracker.Export); err != nil {
		return fail(err)
	}
	notice(output, "Portfolio data exported successfully!")
	return subcommands.ExitSuccess
}

type backupCmd struct {
	output string
}

func (*backupCmd) Name() string     { return "backup" }
func (*backupCmd) Synopsis() string { return "back up the portfolio, the alerts and the settings" }
func (*backupCmd) Usage() string {
	return `cpt backup [-o <file>]

  Writes the whole session to a JSON file, named crypto-backup-<date>.json by
  default. Use -o - for stdout. 'cpt restore' reads it back.
`
}

func (c *backupCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file, - for stdout")
}

func (c *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()

	output := c.output
	if output == "" {
		output = coinfolio.BackupFilename(now())
	}
	if err := writeFile(output, s.tracker.Backup); err != nil {
		return fail(err)
	}
	notice(output, "Backup created successfully!")
	return subcommands.ExitSuccess
}

type restoreCmd struct{}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "restore a backup file" }
func (*restoreCmd) Usage() string {
	return `cpt restore <file>

  Restores the portfolio, the alerts and the settings present in a backup file.
  Parts missing from the file are kept. An invalid file changes nothing.
  Use - to read from stdin.
`
}

func (*restoreCmd) SetFlags(f *flag.FlagSet) {}

func (*restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return usage("expected exactly one backup file")
	}
	var r io.Reader = stdin
	if name := f.Arg(0); name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return fail(err)
		}
		defer file.Close()
		r = file
	}

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	if err := s.tracker.Restore(ctx, r); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
