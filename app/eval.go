package app

import (
	"fmt"
	"io"
	"sort"

	"github.com/habeanf/beamtag/eval"
	"github.com/habeanf/beamtag/nlp/format/conll"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
)

var topErrors int

// Evaluate tags the gold sentences without their tags and scores the result.
// A sentence that fails to tag counts every gold token as missed.
func (p *Pipeline) Evaluate(gold conll.Sentences) (*eval.Total, error) {
	golds := make([]*types.PosTagSequence, len(gold))
	sentences := make([][]*types.TokenSequence, len(gold))
	for i, sent := range gold {
		seq, err := sent.Gold(p.Tagset)
		if err != nil {
			return nil, errors.Wrapf(err, "gold sentence %d", i+1)
		}
		golds[i] = seq
		sentences[i] = []*types.TokenSequence{sent.TokenSequence(false)}
		p.Annotate(sentences[i]...)
	}
	results, err := p.Tag(&Input{Sentences: sentences})
	if err != nil {
		return nil, err
	}
	total := &eval.Total{Results: make([]*eval.Result, 0, len(results))}
	for i, r := range results {
		test := r.Best()
		if test == nil {
			test = types.NewPosTagSequence(sentences[i][0])
		}
		total.Add(eval.Tagging(test, golds[i]))
	}
	return total, nil
}

// WriteReport prints the totals and the n most frequent error classes
func WriteReport(w io.Writer, total *eval.Total, n int) {
	fmt.Fprintln(w, total.String())
	byType := total.Errors().ByType()
	classes := make([]string, 0, len(byType))
	for class := range byType {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		if byType[classes[i]] != byType[classes[j]] {
			return byType[classes[i]] > byType[classes[j]]
		}
		return classes[i] < classes[j]
	})
	if n > 0 && len(classes) > n {
		classes = classes[:n]
	}
	for _, class := range classes {
		fmt.Fprintf(w, "%s\t%d\n", class, byType[class])
	}
}

func EvalRun(env *Env, cmd *commander.Command, args []string) error {
	if err := VerifyFlags(cmd, []string{"in"}); err != nil {
		return err
	}
	if err := VerifyExists(input); err != nil {
		return err
	}
	p, err := NewPipeline(env.Config, env.Log, env.Metrics)
	if err != nil {
		return err
	}
	gold, err := ReadGold(input, inputFormat)
	if err != nil {
		return err
	}
	total, err := p.Evaluate(gold)
	if err != nil {
		return err
	}
	w, err := openOutput(output)
	if err != nil {
		return err
	}
	defer w.Close()
	WriteReport(w, total, topErrors)
	return nil
}

func EvalCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       NewAppWrapCommand(EvalRun),
		UsageLine: "eval <file options> [arguments]",
		Short:     "measures tagging accuracy against gold CoNLL",
		Long: `
measures tagging accuracy against gold CoNLL

	$ ./beamtag eval -tagset <tagset> -f <features> -m <model> -in <gold conll> [-top <n>]

Reports token accuracy, precision, recall, exact sentence match and the most
frequent gold->test confusions.
`,
		Flag: *flag.NewFlagSet("eval", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Gold file")
	cmd.Flag.StringVar(&inputFormat, "format", FORMAT_CONLL, "Input format: conll or tagged (word/TAG)")
	cmd.Flag.StringVar(&output, "out", "", "Report file (default stdout)")
	cmd.Flag.IntVar(&topErrors, "top", 20, "Number of error classes to report; 0 = all")
	return cmd
}
