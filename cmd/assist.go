package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/coinfolio/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	model string
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with an AI assistant about the portfolio" }
func (*assistCmd) Usage() string {
	return `cpt assist [-model <name>] [question]

  Starts an interactive session with a Gemini assistant that can read the
  portfolio valued at live prices, and search for the latest crypto news.
  Needs a Gemini API key in $GEMINI_API_KEY or $GOOGLE_API_KEY.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.model, "model", "", "Gemini model. Defaults to the configuration")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}

	s, err := openSession(ctx)
	if err != nil {
		return fail(err)
	}
	defer s.Close()
	s.loadCatalog(ctx)
	s.refresh(ctx)

	model := c.model
	if model == "" {
		model = s.cfg.Assist.Model
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return fail(fmt.Errorf("cannot initialize Gemini's client: %w", err))
	}

	a := agent.New(stdout, stdin, model,
		agent.NewAnalyst(model),
		agent.NewAccountant(model, s.tracker, s.cfg.Valuation.Weighting()),
	)
	if err := a.Run(ctx, client, prompts...); err != nil {
		return fail(fmt.Errorf("assistant failed: %w", err))
	}
	return subcommands.ExitSuccess
}
