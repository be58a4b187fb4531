package feature

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/habeanf/beamtag/util"
	"github.com/habeanf/beamtag/util/conf"
)

var (
	indexRangeRE = regexp.MustCompile(`IndexRange\(\s*(-?\d+)\s*,\s*(-?\d+)\s*\)`)
	templateRE   = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\(([^()]*)\)$`)
	identRE      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Set is an ordered collection of top-level features, optionally grouped
type Set struct {
	Features []Feature
	groupOf  map[string]string
}

func NewSet(features ...Feature) *Set {
	return &Set{Features: features, groupOf: make(map[string]string)}
}

func (s *Set) Len() int {
	return len(s.Features)
}

// Group returns the group a feature was declared in, if any
func (s *Set) Group(name string) (string, bool) {
	g, ok := s.groupOf[name]
	return g, ok
}

// Groups lists group names in declaration order
func (s *Set) Groups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, f := range s.Features {
		if g, ok := s.groupOf[f.Name()]; ok && !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	return groups
}

// Select keeps ungrouped features and the features of the given groups.
// With no groups the set is returned unchanged.
func (s *Set) Select(groups ...string) *Set {
	if len(groups) == 0 {
		return s
	}
	want := make(map[string]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}
	selected := NewSet()
	for _, f := range s.Features {
		g, grouped := s.groupOf[f.Name()]
		if !grouped || want[g] {
			selected.Features = append(selected.Features, f)
			if grouped {
				selected.groupOf[f.Name()] = g
			}
		}
	}
	return selected
}

// Extract evaluates every feature against ctx, dropping non-applicable ones
func (s *Set) Extract(ctx Context, env *Env) ([]*Result, error) {
	results := make([]*Result, 0, len(s.Features))
	for _, f := range s.Features {
		r, err := Eval(f, ctx, env)
		if err != nil {
			return nil, err
		}
		if r != nil {
			results = append(results, r)
		}
	}
	return results, nil
}

// Loader compiles descriptor files. Each line is one of
//
//	descriptor
//	name \t descriptor
//	name \t group \t descriptor
//	Name(P1,P2) \t descriptor      (parametrised, expanded where called)
//
// IndexRange(a,b) in a line expands it into one feature per index, named name_i.
type Loader struct {
	Registry *Registry
	Log      *zap.Logger
}

func (l *Loader) LoadFile(filename string) (*Set, error) {
	c, err := conf.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "reading features %s", filename)
	}
	set, err := l.load(c)
	return set, errors.Wrapf(err, "features %s", filename)
}

func (l *Loader) Load(reader io.Reader) (*Set, error) {
	c, err := conf.Read(reader)
	if err != nil {
		return nil, err
	}
	return l.load(c)
}

// LoadLines compiles descriptor lines held in memory
func (l *Loader) LoadLines(lines ...string) (*Set, error) {
	return l.Load(strings.NewReader(strings.Join(lines, "\n")))
}

func (l *Loader) load(c *conf.Conf) (*Set, error) {
	log := util.OrNop(l.Log)
	compiler := NewCompiler(l.Registry)
	set := NewSet()
	for _, line := range c.Lines {
		fields := line.Fields()
		var name, group, descriptor string
		switch len(fields) {
		case 1:
			descriptor = fields[0]
		case 2:
			name, descriptor = fields[0], fields[1]
		case 3:
			name, group, descriptor = fields[0], fields[1], fields[2]
		default:
			return nil, errors.Errorf("line %d: expected at most 3 tab separated fields, got %d", line.Num, len(fields))
		}
		name, descriptor = strings.TrimSpace(name), strings.TrimSpace(descriptor)

		if m := templateRE.FindStringSubmatch(name); m != nil {
			params := strings.Split(m[2], ",")
			for i := range params {
				params[i] = strings.TrimSpace(params[i])
			}
			if err := compiler.DefineTemplate(m[1], params, descriptor); err != nil {
				return nil, errors.Wrapf(err, "line %d", line.Num)
			}
			log.Debug("feature template", zap.String("name", m[1]), zap.Strings("params", params))
			continue
		}
		if name != "" && !identRE.MatchString(name) {
			return nil, errors.Wrapf(&DescriptorSyntaxError{Descriptor: name, Msg: "malformed feature name"}, "line %d", line.Num)
		}

		expanded, err := expandIndexRange(name, descriptor)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line.Num)
		}
		for _, e := range expanded {
			var f Feature
			if e.name == "" {
				f, err = compiler.Compile(e.descriptor)
			} else {
				f, err = compiler.Define(e.name, e.descriptor)
			}
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line.Num)
			}
			set.Features = append(set.Features, f)
			if group != "" {
				set.groupOf[f.Name()] = group
			}
			log.Debug("feature", zap.String("name", f.Name()), zap.Stringer("type", f.Type()), zap.String("group", group))
		}
	}
	return set, nil
}

type namedDescriptor struct {
	name, descriptor string
}

func expandIndexRange(name, descriptor string) ([]namedDescriptor, error) {
	matches := indexRangeRE.FindAllStringSubmatch(descriptor, -1)
	if matches == nil {
		if strings.Contains(descriptor, "IndexRange") {
			return nil, &DescriptorSyntaxError{Descriptor: descriptor, Pos: strings.Index(descriptor, "IndexRange"), Msg: "IndexRange takes two integer literals"}
		}
		return []namedDescriptor{{name, descriptor}}, nil
	}
	for _, m := range matches[1:] {
		if m[0] != matches[0][0] {
			return nil, &DescriptorSyntaxError{Descriptor: descriptor, Msg: "conflicting IndexRange bounds"}
		}
	}
	from, _ := strconv.Atoi(matches[0][1])
	to, _ := strconv.Atoi(matches[0][2])
	if to < from {
		return nil, &DescriptorSyntaxError{Descriptor: descriptor, Msg: "IndexRange upper bound below lower bound"}
	}
	retval := make([]namedDescriptor, 0, to-from+1)
	for i := from; i <= to; i++ {
		d := indexRangeRE.ReplaceAllLiteralString(descriptor, strconv.Itoa(i))
		n := ""
		if name != "" {
			n = name + "_" + strconv.Itoa(i)
		}
		retval = append(retval, namedDescriptor{n, d})
	}
	return retval, nil
}
