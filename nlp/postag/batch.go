package postag

import (
	"context"

	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/alg/perceptron"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SentenceResult is the outcome of tagging one sentence of a batch
type SentenceResult struct {
	Index     int
	Sequences []*types.PosTagSequence
	Err       error
}

func (r SentenceResult) Best() *types.PosTagSequence {
	if len(r.Sequences) == 0 {
		return nil
	}
	return r.Sequences[0]
}

// TagAll tags sentences on up to workers goroutines, each with its own
// Tagger from factory. A failing sentence is reported in its result and
// does not stop the batch; only cancellation of ctx does.
func TagAll(ctx context.Context, factory func() (*Tagger, error), sentences [][]*types.TokenSequence, workers int) ([]SentenceResult, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(sentences) {
		workers = len(sentences)
	}
	taggers := make(chan *Tagger, workers)
	for i := 0; i < workers; i++ {
		t, err := factory()
		if err != nil {
			return nil, errors.Wrap(err, "creating tagger")
		}
		taggers <- t
	}
	results := make([]SentenceResult, len(sentences))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sentence := range sentences {
		i, sentence := i, sentence
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tagger := <-taggers
			defer func() { taggers <- tagger }()
			seqs, err := tagger.TagSentence(sentence)
			results[i] = SentenceResult{Index: i, Sequences: seqs, Err: err}
			if err != nil {
				tagger.Log.Warn("sentence failed", zap.Int("sentence", i), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Events replays a gold tagging and returns one training instance per
// statistically decided token. Tokens fixed by an attribute or a positive
// rule are skipped.
func (t *Tagger) Events(gold *types.PosTagSequence) ([]perceptron.Instance, error) {
	history := types.NewPosTagSequence(gold.Tokens)
	var events []perceptron.Instance
	for _, tagged := range gold.Tagged() {
		if tagged.IsRoot() {
			continue
		}
		if _, forced := forcedTag(tagged.Token); !forced {
			ctx := NewContext(tagged.Token, history)
			env := feature.NewEnv()
			rule, err := t.Rules.Match(ctx, env)
			if err != nil {
				return nil, err
			}
			if rule == nil {
				results, err := t.Features.Extract(ctx, env)
				if err != nil {
					return nil, err
				}
				events = append(events, perceptron.Instance{Results: results, Outcome: tagged.Tag.Code})
			}
		}
		history = history.Append(types.NewTaggedToken(tagged.Token, tagged.Decision, tagged.Tag))
	}
	return events, nil
}
