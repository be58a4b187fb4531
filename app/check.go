package app

import (
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

func CheckRun(env *Env, cmd *commander.Command, args []string) error {
	p, err := NewPipeline(env.Config, env.Log, env.Metrics)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.Int("tags", p.Tagset.Len()),
		zap.Int("features", len(p.Features.Features)),
		zap.Int("rules", p.Rules.Len()),
		zap.Int("patterns", len(p.Patterns)),
		zap.Stringer("mode", p.Tokeniser.Mode),
	}
	if p.Lexicon != nil {
		fields = append(fields, zap.Int("lexicon", p.Lexicon.Len()))
	}
	if p.Source != nil {
		if _, err := p.NewTagger(); err != nil {
			return err
		}
		fields = append(fields, zap.Bool("source", true))
	} else {
		env.Log.Warn("no model or decision table configured; only training is possible")
	}
	env.Log.Info("configuration ok", fields...)
	return nil
}

func CheckCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       NewAppWrapCommand(CheckRun),
		UsageLine: "check <file options>",
		Short:     "loads every configured file and reports errors",
		Long: `
loads every configured file and reports errors

	$ ./beamtag check -c <config.yaml>

Compiles feature descriptors, rules and patterns, and checks lexicon tags
against the tagset.
`,
		Flag: *flag.NewFlagSet("check", flag.ExitOnError),
	}
	return cmd
}
