package app

import (
	"strings"

	"github.com/habeanf/beamtag/nlp/postag"
	"github.com/habeanf/beamtag/nlp/tokeniser"

	"github.com/gonuts/flag"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "BEAMTAG"

type BeamConfig struct {
	Width     int  `mapstructure:"width"`
	Propagate bool `mapstructure:"propagate"`
}

type TaggerConfig struct {
	Floor       float64 `mapstructure:"floor"`
	Renormalise bool    `mapstructure:"renormalise"`
	Workers     int     `mapstructure:"workers"`
}

// FilesConfig names the resource files. Resources holds name=path entries
// for table resources reachable from descriptors via Lookup.
type FilesConfig struct {
	Tagset            string   `mapstructure:"tagset"`
	Features          string   `mapstructure:"features"`
	Rules             string   `mapstructure:"rules"`
	Patterns          string   `mapstructure:"patterns"`
	TokeniserFeatures string   `mapstructure:"tokeniserFeatures"`
	TokeniserTable    string   `mapstructure:"tokeniserTable"`
	Lexicon           string   `mapstructure:"lexicon"`
	Model             string   `mapstructure:"model"`
	Table             string   `mapstructure:"table"`
	Resources         []string `mapstructure:"resources"`
}

type FeaturesConfig struct {
	Groups []string `mapstructure:"groups"`
}

type TokeniserConfig struct {
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Config struct {
	Beam      BeamConfig      `mapstructure:"beam"`
	Tagger    TaggerConfig    `mapstructure:"tagger"`
	Files     FilesConfig     `mapstructure:"files"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Tokeniser TokeniserConfig `mapstructure:"tokeniser"`
	Log       LogConfig       `mapstructure:"log"`
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"b":        "beam.width",
	"p":        "beam.propagate",
	"floor":    "tagger.floor",
	"renorm":   "tagger.renormalise",
	"workers":  "tagger.workers",
	"tagset":   "files.tagset",
	"f":        "files.features",
	"r":        "files.rules",
	"patterns": "files.patterns",
	"tf":       "files.tokeniserFeatures",
	"tt":       "files.tokeniserTable",
	"lex":      "files.lexicon",
	"m":        "files.model",
	"table":    "files.table",
	"res":      "files.resources",
	"groups":   "features.groups",
	"mode":     "tokeniser.mode",
	"log":      "log.level",
	"dev":      "log.development",
}

// every key needs a default for environment overrides to reach Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("beam.width", postag.DEFAULT_BEAM_WIDTH)
	v.SetDefault("beam.propagate", false)
	v.SetDefault("tagger.floor", postag.DEFAULT_FLOOR)
	v.SetDefault("tagger.renormalise", false)
	v.SetDefault("tagger.workers", 1)
	for _, key := range []string{"tagset", "features", "rules", "patterns", "tokeniserFeatures", "tokeniserTable", "lexicon", "model", "table"} {
		v.SetDefault("files."+key, "")
	}
	v.SetDefault("files.resources", []string{})
	v.SetDefault("features.groups", []string{})
	v.SetDefault("tokeniser.mode", tokeniser.Interval.String())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig layers defaults, the YAML file at path (if any), BEAMTAG_*
// environment variables and the flags set on the command line, in
// increasing order of precedence.
func LoadConfig(path string, flags *flag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	if flags != nil {
		flags.Visit(func(f *flag.Flag) {
			if key, ok := flagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Beam.Width < 1 {
		return errors.Errorf("beam.width must be positive, got %d", c.Beam.Width)
	}
	if c.Tagger.Floor < 0 || c.Tagger.Floor >= 1 {
		return errors.Errorf("tagger.floor must be in [0,1), got %v", c.Tagger.Floor)
	}
	if c.Tagger.Workers < 1 {
		return errors.Errorf("tagger.workers must be positive, got %d", c.Tagger.Workers)
	}
	if _, err := tokeniser.ParseMode(c.Tokeniser.Mode); err != nil {
		return err
	}
	return nil
}

// ResourceFiles splits the name=path entries of Files.Resources
func (c *Config) ResourceFiles() (map[string]string, error) {
	files := make(map[string]string, len(c.Files.Resources))
	for _, entry := range c.Files.Resources {
		name, path, ok := strings.Cut(entry, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			return nil, errors.Errorf("resource entry %q is not name=path", entry)
		}
		files[name] = path
	}
	return files, nil
}
