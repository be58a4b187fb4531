package app

import (
	"io"
	"os"
	"runtime"

	"github.com/habeanf/beamtag/util"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
	"go.uber.org/zap"
)

var AppCommands []*commander.Command = []*commander.Command{
	TagCmd(),
	TokeniseCmd(),
	TrainCmd(),
	EvalCmd(),
	CheckCmd(),
}

func AllCommands() *commander.Command {
	cmd := &commander.Command{
		UsageLine:   "beamtag <command> [options]",
		Short:       "beam search part-of-speech tagger and pattern tokeniser",
		Subcommands: AppCommands,
		Flag:        *flag.NewFlagSet("beamtag", flag.ExitOnError),
	}
	for _, app := range cmd.Subcommands {
		ConfigFlags(&app.Flag)
		app.Flag.IntVar(&CPUs, NUM_CPUS_FLAG, 0, "Max CPUS to use (runtime.GOMAXPROCS); 0 = all")
	}
	return cmd
}

// Env is what every command starts from
type Env struct {
	Config  *Config
	Log     *zap.Logger
	Metrics *util.Metrics
}

type AppFunc func(env *Env, cmd *commander.Command, args []string) error

func InitCommand(cmd *commander.Command, args []string) (*Env, error) {
	cfg, err := LoadConfig(flagValue(cmd, CONFIG_FLAG), &cmd.Flag)
	if err != nil {
		return nil, err
	}
	log, err := util.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	maxCPUs := runtime.NumCPU()
	if CPUs > maxCPUs {
		log.Warn("number of CPUs capped to all available", zap.Int("cpus", maxCPUs))
		CPUs = 0
	}
	if CPUs == 0 {
		CPUs = maxCPUs
	}
	runtime.GOMAXPROCS(CPUs)
	log.Debug("starting", zap.String("command", cmd.Name()), zap.Int("cpus", CPUs), zap.Strings("args", args))
	return &Env{Config: cfg, Log: log, Metrics: util.NewMetrics()}, nil
}

func NewAppWrapCommand(f AppFunc) func(cmd *commander.Command, args []string) error {
	wrapped := func(cmd *commander.Command, args []string) error {
		env, err := InitCommand(cmd, args)
		if err != nil {
			return err
		}
		defer env.Log.Sync()
		if err := f(env, cmd, args); err != nil {
			return err
		}
		return writeMetrics(env.Metrics, flagValue(cmd, METRICS_FLAG))
	}

	return wrapped
}

func writeMetrics(m *util.Metrics, filename string) error {
	if filename == "" {
		return nil
	}
	var out io.WriteCloser = nopCloser{os.Stderr}
	if filename != STDIO {
		f, err := openOutput(filename)
		if err != nil {
			return err
		}
		out = f
	}
	defer out.Close()
	return m.Write(out)
}
