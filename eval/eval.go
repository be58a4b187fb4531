package eval

import (
	"fmt"

	"github.com/habeanf/beamtag/nlp/types"
)

func Precision(truePositives, testPositives int) float64 {
	if testPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(testPositives)
}

func Recall(truePositives, conditionPositives int) float64 {
	if conditionPositives == 0 {
		return 0
	}
	return float64(truePositives) / float64(conditionPositives)
}

func F1(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2.0 * (precision * recall) / (precision + recall)
}

type Error interface {
	String() string
	Class() string
}

type Errors []Error

func (ers Errors) ByType() map[string]int {
	retval := make(map[string]int)
	for _, e := range ers {
		retval[e.Class()]++
	}
	return retval
}

// Result counts tokens: TP correctly tagged, FP tagged wrongly or not in
// the gold tokenisation, FN gold tokens missing from the test
type Result struct {
	TP, FP, TN, FN int
	Errors         Errors
	Other          interface{}
}

func (r *Result) All() int {
	return r.TP + r.FP + r.TN + r.FN
}

func (r *Result) Correct() int {
	return r.TP + r.TN
}

func (r *Result) Incorrect() int {
	return r.FP + r.FN
}

func (r *Result) TestPositives() int {
	return r.TP + r.FP
}

func (r *Result) TestNegatives() int {
	return r.TN + r.FN
}

func (r *Result) ConditionPositives() int {
	return r.TP + r.FN
}

func (r *Result) ConditionNegatives() int {
	return r.FP + r.TN
}

func (r *Result) Precision() float64 {
	return Precision(r.TP, r.TestPositives())
}

func (r *Result) Recall() float64 {
	return Recall(r.TP, r.ConditionPositives())
}

func (r *Result) Accuracy() float64 {
	if r.All() == 0 {
		return 0
	}
	return float64(r.Correct()) / float64(r.All())
}

func (r *Result) F1() float64 {
	return F1(r.Precision(), r.Recall())
}

type Eval func(test, gold *types.PosTagSequence) *Result

type Total struct {
	Result
	Results           []*Result
	Exact, Population int
}

func (t *Total) Add(r *Result) {
	t.TP += r.TP
	t.FP += r.FP
	t.TN += r.TN
	t.FN += r.FN
	if r.Incorrect() == 0 {
		t.Exact += 1
	}
	t.Population += 1
	if t.Results != nil {
		t.Results = append(t.Results, r)
	}
}

func (t *Total) ExactMatch() float64 {
	if t.Population == 0 {
		return 0
	}
	return float64(t.Exact) / float64(t.Population)
}

func (t *Total) Errors() Errors {
	retval := make(Errors, 0, t.Incorrect())
	for _, v := range t.Results {
		retval = append(retval, v.Errors...)
	}
	return retval
}

func (t *Total) String() string {
	return fmt.Sprintf("tokens %d accuracy %.4f P %.4f R %.4f F1 %.4f exact %d/%d (%.4f)",
		t.All(), t.Accuracy(), t.Precision(), t.Recall(), t.F1(), t.Exact, t.Population, t.ExactMatch())
}

const SEGMENTATION_CLASS = "SEG"

// TagError is one token tagged differently from the gold standard
type TagError struct {
	Word, Gold, Test string
}

func (e *TagError) String() string {
	return fmt.Sprintf("%s: %s tagged %s", e.Word, e.Gold, e.Test)
}

func (e *TagError) Class() string {
	if e.Gold == "" || e.Test == "" {
		return SEGMENTATION_CLASS
	}
	return e.Gold + "->" + e.Test
}

type span struct{ start, end int }

// Tagging compares tags token by token, aligning tokens by span. Root
// tokens are ignored.
func Tagging(test, gold *types.PosTagSequence) *Result {
	result := &Result{}
	golds := make(map[span]*types.TaggedToken, gold.Len())
	for _, g := range gold.Tagged() {
		if !g.IsRoot() {
			golds[span{g.Token.Start, g.Token.End}] = g
		}
	}
	for _, tt := range test.Tagged() {
		if tt.IsRoot() {
			continue
		}
		key := span{tt.Token.Start, tt.Token.End}
		g, ok := golds[key]
		switch {
		case !ok:
			result.FP++
			result.Errors = append(result.Errors, &TagError{Word: tt.Token.Text, Test: tt.Tag.Code})
		case g.Tag.Code == tt.Tag.Code:
			result.TP++
		default:
			result.FP++
			result.Errors = append(result.Errors, &TagError{Word: tt.Token.Text, Gold: g.Tag.Code, Test: tt.Tag.Code})
		}
		delete(golds, key)
	}
	for _, g := range golds {
		result.FN++
		result.Errors = append(result.Errors, &TagError{Word: g.Token.Text, Gold: g.Tag.Code})
	}
	return result
}
