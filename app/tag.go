package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/habeanf/beamtag/nlp/format/conll"
	"github.com/habeanf/beamtag/nlp/format/raw"
	"github.com/habeanf/beamtag/nlp/format/taggedsentence"
	"github.com/habeanf/beamtag/nlp/postag"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadGold reads tagged sentences in CoNLL or word/TAG format
func ReadGold(filename, format string) (conll.Sentences, error) {
	in, err := openInput(filename)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	var sents conll.Sentences
	switch format {
	case FORMAT_CONLL:
		sents, err = conll.Read(in)
	case FORMAT_TAGGED:
		sents, err = taggedsentence.Read(in)
	default:
		return nil, errors.Errorf("tagged input must be %s or %s, got %q", FORMAT_CONLL, FORMAT_TAGGED, format)
	}
	return sents, errors.Wrapf(err, "reading %s", filename)
}

// Input holds the candidate tokenisations of every sentence read. Errs is
// set only for text input: a line that failed to tokenise keeps its error
// and a single untokenised token.
type Input struct {
	Sentences [][]*types.TokenSequence
	Errs      []error
}

// Err is the tokenisation error of sentence i, if any
func (in *Input) Err(i int) error {
	if in.Errs == nil {
		return nil
	}
	return in.Errs[i]
}

// untokenised holds a whole line as one token
func untokenised(line string) *types.TokenSequence {
	seq := types.NewTokenSequence(line)
	seq.Add(0, len(line))
	return seq
}

// ReadSentences returns the candidate tokenisations of every input sentence.
// Text input holds one sentence per line and goes through the tokeniser;
// every other format keeps its tokenisation. With gold set the tags of
// CoNLL or tagged input are imposed through the posTag attribute.
func (p *Pipeline) ReadSentences(filename, format string, gold bool) (*Input, error) {
	in := &Input{}
	switch format {
	case FORMAT_TEXT:
		r, err := openInput(filename)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		lines, err := raw.ReadText(r)
		if err != nil {
			return nil, err
		}
		in.Sentences = make([][]*types.TokenSequence, len(lines))
		in.Errs = make([]error, len(lines))
		for i, line := range lines {
			lattice, err := p.Tokeniser.Lattice(line)
			if err != nil {
				p.Log.Warn("sentence failed to tokenise", zap.Int("sentence", i), zap.Error(err))
				p.Metrics.Failed()
				in.Errs[i] = errors.Wrapf(err, "sentence %d", i+1)
				lattice = []*types.TokenSequence{untokenised(line)}
			}
			in.Sentences[i] = lattice
		}
	case FORMAT_RAW:
		r, err := openInput(filename)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		seqs, err := raw.Read(r, 0)
		if err != nil {
			return nil, err
		}
		in.Sentences = make([][]*types.TokenSequence, len(seqs))
		for i, seq := range seqs {
			in.Sentences[i] = []*types.TokenSequence{seq}
		}
	default:
		sents, err := ReadGold(filename, format)
		if err != nil {
			return nil, err
		}
		in.Sentences = make([][]*types.TokenSequence, len(sents))
		for i, sent := range sents {
			in.Sentences[i] = []*types.TokenSequence{sent.TokenSequence(gold)}
		}
	}
	for _, lattice := range in.Sentences {
		p.Annotate(lattice...)
	}
	return in, nil
}

// Tag tags sentences on the configured number of workers. Sentences that
// failed to tokenise are passed through as failed results. Interrupting the
// process cancels the remaining sentences.
func (p *Pipeline) Tag(in *Input) ([]postag.SentenceResult, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	factory := func() (*postag.Tagger, error) {
		return p.NewTagger()
	}
	var (
		pending [][]*types.TokenSequence
		index   []int
	)
	results := make([]postag.SentenceResult, len(in.Sentences))
	for i, lattice := range in.Sentences {
		results[i] = postag.SentenceResult{Index: i, Err: in.Err(i)}
		if results[i].Err == nil {
			pending = append(pending, lattice)
			index = append(index, i)
		}
	}
	start := time.Now()
	tagged, err := postag.TagAll(ctx, factory, pending, p.Config.Tagger.Workers)
	for j, r := range tagged {
		r.Index = index[j]
		results[index[j]] = r
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.Log.Info("tagged", zap.Int("sentences", len(in.Sentences)), zap.Int("failed", failed), zap.Duration("elapsed", time.Since(start)))
	return results, err
}

// WriteTagged writes the best tagging of each sentence. Failed sentences
// are written untagged.
func WriteTagged(w io.Writer, format string, sentences [][]*types.TokenSequence, results []postag.SentenceResult) error {
	best := make([]*types.PosTagSequence, len(results))
	for i, r := range results {
		if best[i] = r.Best(); best[i] == nil {
			best[i] = types.NewPosTagSequence(sentences[i][0])
		}
	}
	switch format {
	case FORMAT_CONLL:
		out := make([]conll.Sentence, len(best))
		for i, seq := range best {
			if seq.Len() == 0 {
				out[i] = conll.FromTokens(seq.Tokens)
			} else {
				out[i] = conll.FromTagged(seq)
			}
		}
		return conll.Write(w, out)
	case FORMAT_TAGGED:
		return taggedsentence.Write(w, best)
	}
	return errors.Errorf("tagged output must be %s or %s, got %q", FORMAT_CONLL, FORMAT_TAGGED, format)
}

func TagRun(env *Env, cmd *commander.Command, args []string) error {
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
	in, err := p.ReadSentences(input, inputFormat, goldInput)
	if err != nil {
		return err
	}
	results, err := p.Tag(in)
	if err != nil {
		return err
	}
	w, err := openOutput(output)
	if err != nil {
		return err
	}
	defer w.Close()
	return WriteTagged(w, outputFormat, in.Sentences, results)
}

func TagCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       NewAppWrapCommand(TagRun),
		UsageLine: "tag <file options> [arguments]",
		Short:     "tags CoNLL or raw text with a trained model or decision table",
		Long: `
tags CoNLL or raw text with a trained model or decision table

	$ ./beamtag tag -tagset <tagset> -f <features> -m <model> -in <input> [-format conll|raw|text|tagged] [-out <output>] [-oformat conll|tagged] [options]

Sentences that fail to tag are written untagged and reported in the log.
`,
		Flag: *flag.NewFlagSet("tag", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Input file (- for stdin)")
	cmd.Flag.StringVar(&inputFormat, "format", FORMAT_CONLL, "Input format: conll, raw (token per line), text (sentence per line, tokenised) or tagged (word/TAG)")
	cmd.Flag.StringVar(&output, "out", "", "Output file (default stdout)")
	cmd.Flag.StringVar(&outputFormat, "oformat", FORMAT_CONLL, "Output format: conll or tagged")
	cmd.Flag.BoolVar(&goldInput, "gold", false, "Impose the input tags through the posTag attribute")
	return cmd
}

func TokeniseRun(env *Env, cmd *commander.Command, args []string) error {
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
	in, err := openInput(input)
	if err != nil {
		return err
	}
	defer in.Close()
	lines, err := raw.ReadText(in)
	if err != nil {
		return err
	}
	seqs := make([]*types.TokenSequence, len(lines))
	for i, line := range lines {
		if seqs[i], err = p.Tokeniser.TokeniseBest(line); err != nil {
			p.Log.Warn("sentence failed to tokenise", zap.Int("sentence", i), zap.Error(err))
			p.Metrics.Failed()
			seqs[i] = untokenised(line)
			continue
		}
		p.Log.Debug("tokenised", zap.Int("sentence", i+1), zap.Stringer("tokens", seqs[i]), zap.Float64("score", seqs[i].Score))
	}
	w, err := openOutput(output)
	if err != nil {
		return err
	}
	defer w.Close()
	switch outputFormat {
	case FORMAT_RAW:
		return raw.Write(w, seqs)
	case FORMAT_CONLL:
		out := make([]conll.Sentence, len(seqs))
		for i, seq := range seqs {
			out[i] = conll.FromTokens(seq)
		}
		return conll.Write(w, out)
	}
	return errors.Errorf("tokenised output must be %s or %s, got %q", FORMAT_CONLL, FORMAT_RAW, outputFormat)
}

func TokeniseCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       NewAppWrapCommand(TokeniseRun),
		UsageLine: "tokenise <file options> [arguments]",
		Short:     "splits raw text into tokens with the pattern tokeniser",
		Long: `
splits raw text into tokens with the pattern tokeniser

	$ ./beamtag tokenise -tagset <tagset> -patterns <patterns> [-tf <features> -tt <table>] [-mode interval|compound] -in <text> [-out <output>] [-oformat conll|raw]

Reads one sentence per line. CoNLL output holds ID and FORM columns; raw
output holds a token per line. A line that fails to tokenise is written as a
single token and reported in the log.
`,
		Flag: *flag.NewFlagSet("tokenise", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&input, "in", "", "Text, one sentence per line (- for stdin)")
	cmd.Flag.StringVar(&output, "out", "", "Output file (default stdout)")
	cmd.Flag.StringVar(&outputFormat, "oformat", FORMAT_CONLL, "Output format: conll or raw (token per line)")
	return cmd
}
