package app

import (
	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/perceptron"
	"github.com/habeanf/beamtag/nlp/format/conll"
	"github.com/habeanf/beamtag/nlp/postag"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// untrained stands in for the source while gold events are replayed
var untrained = decision.SourceFunc(func(results []*feature.Result) ([]decision.Decision, error) {
	return nil, errors.New("model is not trained")
})

// Train replays the gold sentences and trains a perceptron over their events.
// Every tag of the tagset is an outcome of the model.
func (p *Pipeline) Train(gold conll.Sentences, iterations int, averaged bool) (*perceptron.Model, error) {
	tagger, err := p.NewTagger(postag.WithSource(untrained))
	if err != nil {
		return nil, err
	}
	var instances []perceptron.Instance
	for i, sent := range gold {
		seq, err := sent.Gold(p.Tagset)
		if err != nil {
			return nil, errors.Wrapf(err, "gold sentence %d", i+1)
		}
		p.Annotate(seq.Tokens)
		events, err := tagger.Events(seq)
		if err != nil {
			return nil, errors.Wrapf(err, "gold sentence %d", i+1)
		}
		instances = append(instances, events...)
	}
	p.Log.Info("training", zap.Int("sentences", len(gold)), zap.Int("instances", len(instances)), zap.Int("iterations", iterations), zap.Bool("averaged", averaged))
	if len(instances) == 0 {
		return nil, errors.New("no training instances; every token is fixed by an attribute or a rule")
	}

	outcomes := make([]string, 0, p.Tagset.Len())
	for _, tag := range p.Tagset.Tags() {
		outcomes = append(outcomes, tag.Code)
	}
	var updater perceptron.UpdateStrategy = &perceptron.TrivialStrategy{}
	if averaged {
		updater = &perceptron.AveragedStrategy{}
	}
	trainer := &perceptron.LinearPerceptron{
		Updater:    updater,
		Iterations: iterations,
		Model:      perceptron.NewModel(outcomes...),
		Log:        p.Log.Named("perceptron"),
	}
	return trainer.Train(instances), nil
}

func TrainRun(env *Env, cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"in", "om"}); err != nil {
		return err
	}
	if err := VerifyExists(input); err != nil {
		return err
	}
	if Iterations < 1 {
		return errors.Errorf("iterations must be positive, got %d", Iterations)
	}
	p, err := NewPipeline(env.Config, env.Log, env.Metrics)
	if err != nil {
		return err
	}
	gold, err := ReadGold(input, inputFormat)
	if err != nil {
		return err
	}
	model, err := p.Train(gold, Iterations, Averaged)
	if err != nil {
		return err
	}
	w, err := openOutput(modelOut)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := model.Write(w); err != nil {
		return err
	}
	env.Log.Info("wrote model", zap.String("file", modelOut))
	return nil
}

func TrainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       NewAppWrapCommand(TrainRun),
		UsageLine: "train <file options> [arguments]",
		Short:     "trains a perceptron tagging model from gold CoNLL",
		Long: `
trains a perceptron tagging model from gold CoNLL

	$ ./beamtag train -tagset <tagset> -f <features> [-r <rules>] [-lex <lexicon>] -in <gold conll> -om <model out> [-it <iterations>]

Tokens fixed by a posTag attribute or a positive rule produce no training events.
`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Gold training file")
	cmd.Flag.StringVar(&inputFormat, "format", FORMAT_CONLL, "Input format: conll or tagged (word/TAG)")
	cmd.Flag.StringVar(&modelOut, "om", "", "Output model file")
	cmd.Flag.IntVar(&Iterations, "it", 10, "Number of Perceptron Iterations")
	cmd.Flag.BoolVar(&Averaged, "avg", true, "Average the perceptron weights")
	return cmd
}
