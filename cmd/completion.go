package cmd

import (
	"context"
	"flag"
	"io"
	"strconv"

	"github.com/etnz/coinfolio/docs"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of cpt.
//
// A main package calls Completion().Complete(name) before parsing the flags.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub: make(map[string]*complete.Command),
		Flags: map[string]complete.Predictor{
			"config":    predict.Files("*.yaml"),
			"store-dir": predict.Dirs("*"),
			"v":         predict.Nothing,
		},
	}
	for _, c := range Commands() {
		root.Sub[c.Name()] = &complete.Command{
			Flags: flagPredictors(c.SetFlags),
			Args:  argPredictors[c.Name()],
		}
	}
	return root
}

// flagPredictors predicts the flags declared by 'setFlags'.
func flagPredictors(setFlags func(*flag.FlagSet)) map[string]complete.Predictor {
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	setFlags(fs)
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		switch f.Name {
		case "coin":
			flags[f.Name] = complete.PredictFunc(predictCoins)
		case "o":
			flags[f.Name] = predict.Files("*")
		case "weighting":
			flags[f.Name] = predict.Set{"value", "running"}
		default:
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

var argPredictors = map[string]complete.Predictor{
	"remove":   complete.PredictFunc(predictHoldings),
	"unalert":  complete.PredictFunc(predictAlerts),
	"darkmode": predict.Set{"on", "off", "toggle"},
	"restore":  predict.Files("*.json"),
	"topic":    complete.PredictFunc(predictTopics),
}

// quietly runs 'f' on a session whose output is discarded. Completion must
// not write anything but the candidates.
func quietly(f func(context.Context, *session) []string) []string {
	out, errOut := stdout, stderr
	stdout, stderr = io.Discard, io.Discard
	defer func() { stdout, stderr = out, errOut }()

	ctx := context.Background()
	s, err := openSession(ctx)
	if err != nil {
		return nil
	}
	defer s.Close()
	return f(ctx, s)
}

func predictCoins(prefix string) []string {
	return quietly(func(ctx context.Context, s *session) []string {
		if err := s.loadCatalog(ctx); err != nil {
			return nil
		}
		var ids []string
		for _, c := range s.tracker.Catalog().Coins() {
			ids = append(ids, c.ID)
		}
		return ids
	})
}

func predictHoldings(prefix string) []string {
	return quietly(func(_ context.Context, s *session) []string {
		return s.tracker.HoldingIDs()
	})
}

func predictAlerts(prefix string) []string {
	return quietly(func(_ context.Context, s *session) []string {
		var ids []string
		for _, a := range s.tracker.Alerts() {
			ids = append(ids, strconv.FormatInt(a.ID, 10))
		}
		return ids
	})
}

func predictTopics(prefix string) []string {
	topics, _ := docs.Topics()
	return topics
}
