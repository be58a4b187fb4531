// Package rules holds the deterministic overrides applied around the
// statistical step: positive rules impose a tag, negative rules veto one.
package rules

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/habeanf/beamtag/alg/decision"
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/util"
	"github.com/habeanf/beamtag/util/conf"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const NEGATIVE_PREFIX = "!"

type Rule struct {
	Name      string
	Tag       string
	Negative  bool
	Condition feature.Feature
}

// Holds evaluates the condition; a not-applicable result does not hold
func (r *Rule) Holds(ctx feature.Context, env *feature.Env) (bool, error) {
	result, err := feature.Eval(r.Condition, ctx, env)
	if err != nil || result == nil {
		return false, err
	}
	return result.Bool(), nil
}

func (r *Rule) String() string {
	prefix := ""
	if r.Negative {
		prefix = NEGATIVE_PREFIX
	}
	return fmt.Sprintf("%s%s\t%s", prefix, r.Tag, r.Condition.Name())
}

type Rules struct {
	Positive []*Rule
	Negative []*Rule
}

func (rs *Rules) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Positive) + len(rs.Negative)
}

// Match returns the first positive rule that holds, or nil
func (rs *Rules) Match(ctx feature.Context, env *feature.Env) (*Rule, error) {
	if rs == nil {
		return nil, nil
	}
	for _, r := range rs.Positive {
		holds, err := r.Holds(ctx, env)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %s", r.Name)
		}
		if holds {
			return r, nil
		}
	}
	return nil, nil
}

// Prune drops every decision vetoed by a holding negative rule. If nothing
// would remain the original decisions are returned with restored set.
func (rs *Rules) Prune(ctx feature.Context, env *feature.Env, decisions []decision.Decision, log *zap.Logger) ([]decision.Decision, bool, error) {
	if rs == nil || len(rs.Negative) == 0 {
		return decisions, false, nil
	}
	vetoed := make(map[string]bool)
	for _, r := range rs.Negative {
		if vetoed[r.Tag] || !hasOutcome(decisions, r.Tag) {
			continue
		}
		holds, err := r.Holds(ctx, env)
		if err != nil {
			return nil, false, errors.Wrapf(err, "rule %s", r.Name)
		}
		if holds {
			vetoed[r.Tag] = true
		}
	}
	if len(vetoed) == 0 {
		return decisions, false, nil
	}
	kept := make([]decision.Decision, 0, len(decisions))
	for _, d := range decisions {
		if !vetoed[d.Outcome] {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		util.OrNop(log).Warn("negative rules removed every decision, restoring",
			zap.Int("decisions", len(decisions)), zap.Strings("vetoed", keys(vetoed)))
		return decisions, true, nil
	}
	return kept, false, nil
}

func hasOutcome(decisions []decision.Decision, outcome string) bool {
	for _, d := range decisions {
		if d.Outcome == outcome {
			return true
		}
	}
	return false
}

func keys(m map[string]bool) []string {
	retval := make([]string, 0, len(m))
	for k := range m {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

// Load reads rules, one per line, as TAG<tab>condition or
// name<tab>TAG<tab>condition. A tag prefixed by ! makes a negative rule.
func Load(r io.Reader, compiler *feature.Compiler) (*Rules, error) {
	c, err := conf.Read(r)
	if err != nil {
		return nil, err
	}
	rs := &Rules{}
	for i, line := range c.Lines {
		fields := line.Fields()
		rule := &Rule{Name: fmt.Sprintf("rule%d", i+1)}
		var descriptor string
		switch len(fields) {
		case 2:
			rule.Tag, descriptor = fields[0], fields[1]
		case 3:
			rule.Name, rule.Tag, descriptor = fields[0], fields[1], fields[2]
		default:
			return nil, errors.Errorf("line %d: expected tag and condition", line.Num)
		}
		if strings.HasPrefix(rule.Tag, NEGATIVE_PREFIX) {
			rule.Negative = true
			rule.Tag = rule.Tag[len(NEGATIVE_PREFIX):]
		}
		if rule.Tag == "" {
			return nil, errors.Errorf("line %d: empty tag", line.Num)
		}
		rule.Condition, err = compiler.Compile(descriptor)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line.Num)
		}
		if rule.Condition.Type() != feature.BooleanType {
			return nil, errors.Wrapf(&feature.FeatureSyntaxError{
				Descriptor: descriptor,
				Name:       rule.Name,
				Msg:        "rule condition must be boolean, got " + rule.Condition.Type().String(),
			}, "line %d", line.Num)
		}
		if rule.Negative {
			rs.Negative = append(rs.Negative, rule)
		} else {
			rs.Positive = append(rs.Positive, rule)
		}
	}
	return rs, nil
}

func LoadFile(filename string, compiler *feature.Compiler) (*Rules, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rs, err := Load(f, compiler)
	return rs, errors.Wrap(err, filename)
}
