package app

import (
	"io"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"github.com/pkg/errors"
)

const (
	CONFIG_FLAG   = "c"
	METRICS_FLAG  = "metrics"
	NUM_CPUS_FLAG = "cpus"
	STDIO         = "-"

	// input and output formats
	FORMAT_CONLL  = "conll"
	FORMAT_RAW    = "raw"
	FORMAT_TEXT   = "text"
	FORMAT_TAGGED = "tagged"
)

var (
	CPUs int

	// file names
	input        string
	output       string
	modelOut     string
	inputFormat  string
	outputFormat string
	goldInput    bool

	// training options
	Iterations int
	Averaged   bool
)

// ConfigFlags registers the flags that override configuration keys. Values
// are read back through LoadConfig only when set on the command line.
func ConfigFlags(fs *flag.FlagSet) {
	fs.String(CONFIG_FLAG, "", "YAML configuration file")
	fs.String(METRICS_FLAG, "", "Write metrics in text exposition format to this file after the run (- for stderr)")
	fs.Int("b", 1, "Beam width")
	fs.Bool("p", false, "Propagate the tokeniser beam into the tagger")
	fs.Float64("floor", 0.001, "Probability floor")
	fs.Bool("renorm", false, "Renormalise decisions after filtering")
	fs.Int("workers", 1, "Sentences tagged in parallel")
	fs.String("tagset", "", "Tagset file")
	fs.String("f", "", "Features configuration file")
	fs.String("groups", "", "Comma separated feature groups to enable (default all)")
	fs.String("r", "", "Rules file")
	fs.String("patterns", "", "Token patterns file")
	fs.String("tf", "", "Tokeniser features configuration file")
	fs.String("tt", "", "Tokeniser decision table file")
	fs.String("mode", "interval", "Tokeniser mode: interval or compound")
	fs.String("lex", "", "Lexicon file")
	fs.String("m", "", "Model file")
	fs.String("table", "", "Decision table file")
	fs.String("res", "", "Comma separated name=path table resources")
	fs.String("log", "info", "Log level")
	fs.Bool("dev", false, "Development logging")
}

func flagValue(cmd *commander.Command, name string) string {
	f := cmd.Flag.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}

func VerifyExists(filename string) error {
	if filename == STDIO {
		return nil
	}
	_, err := os.Stat(filename)
	return errors.Wrapf(err, "accessing file %s", filename)
}

func VerifyFlags(cmd *commander.Command, required []string) error {
	for _, name := range required {
		if flagValue(cmd, name) == "" {
			cmd.Usage()
			return errors.Errorf("required flag -%s not set", name)
		}
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openInput opens filename, or stdin for -
func openInput(filename string) (io.ReadCloser, error) {
	if filename == STDIO {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(filename)
	return f, errors.Wrapf(err, "opening %s", filename)
}

// openOutput creates filename, or returns stdout for - or an empty name
func openOutput(filename string) (io.WriteCloser, error) {
	if filename == "" || filename == STDIO {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(filename)
	return f, errors.Wrapf(err, "creating %s", filename)
}
