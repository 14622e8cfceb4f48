package cmd

import (
	"context"
	"flag"

	"github.com/etnz/coinfolio/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	markdown bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `cpt topic [<topic>...]

  Shows the documentation of the topics, or the list of topics.
  Use * for all of them.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.markdown, "markdown", false, "Print the raw markdown")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	topics := f.Args()
	if len(topics) == 0 {
		topics = []string{"readme"}
	}
	doc, err := docs.Concat(topics...)
	if err != nil {
		return fail(err)
	}
	if err := printMarkdown(doc, false, c.markdown); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
