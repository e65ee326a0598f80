package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/limaJavier/coursescheduler/pkg/model"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Schedule ScheduleConfig
	Engine   EngineConfig
	Input    InputConfig
	Output   OutputConfig
	Log      LogConfig

	MetricsFile string
}

type ScheduleConfig struct {
	Mode                   string
	TimeLimit              time.Duration
	MaxLectureSlots        int
	DefaultFixedEnrollment int
	AILabRoom              string
	NetworkLabRoom         string
}

// EngineConfig selects the optimization engine. "cp" and "branchbound" run in process; any other
// name is looked up in the solver config file.
type EngineConfig struct {
	Name       string
	ConfigPath string
	Workers    int // Parallel search workers of the "cp" engine
}

type InputConfig struct {
	Dir       string
	Json      string // Takes precedence over Dir
	Delimiter rune
}

type OutputConfig struct {
	Dir  string
	Name string
	PDF  bool
}

type LogConfig struct {
	Level  string
	Format string
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"mode":          "MODE",
	"time-limit":    "TIME_LIMIT",
	"engine":        "ENGINE",
	"solver-config": "SOLVER_CONFIG",
	"workers":       "ENGINE_WORKERS",
	"input":         "INPUT_DIR",
	"json":          "INPUT_JSON",
	"delimiter":     "CSV_DELIMITER",
	"output":        "OUTPUT_DIR",
	"name":          "OUTPUT_NAME",
	"pdf":           "EXPORT_PDF",
	"metrics":       "METRICS_FILE",
	"log-level":     "LOG_LEVEL",
	"log-format":    "LOG_FORMAT",
}

// Load reads the configuration from (in increasing priority) defaults, a .env file, the environment
// and the given flags. Flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("cannot bind flag %v: %w", name, err)
				}
			}
		}
	}

	delimiter, err := parseDelimiter(v.GetString("CSV_DELIMITER"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")

	cfg.Schedule = ScheduleConfig{
		Mode:                   v.GetString("MODE"),
		TimeLimit:              parseDuration(v.GetString("TIME_LIMIT"), 120*time.Second),
		MaxLectureSlots:        v.GetInt("MAX_LECTURE_SLOTS"),
		DefaultFixedEnrollment: v.GetInt("DEFAULT_FIXED_ENROLLMENT"),
		AILabRoom:              v.GetString("AI_LAB_ROOM"),
		NetworkLabRoom:         v.GetString("NETWORK_LAB_ROOM"),
	}

	cfg.Engine = EngineConfig{
		Name:       v.GetString("ENGINE"),
		ConfigPath: v.GetString("SOLVER_CONFIG"),
		Workers:    v.GetInt("ENGINE_WORKERS"),
	}

	cfg.Input = InputConfig{
		Dir:       v.GetString("INPUT_DIR"),
		Json:      v.GetString("INPUT_JSON"),
		Delimiter: delimiter,
	}

	cfg.Output = OutputConfig{
		Dir:  v.GetString("OUTPUT_DIR"),
		Name: v.GetString("OUTPUT_NAME"),
		PDF:  v.GetBool("EXPORT_PDF"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.MetricsFile = v.GetString("METRICS_FILE")

	return cfg, nil
}

// Options turns the schedule section into model options
func (cfg *Config) Options() (model.Options, error) {
	mode, err := model.ParseMode(cfg.Schedule.Mode)
	if err != nil {
		return model.Options{}, err
	}

	options := model.DefaultOptions(mode)
	options.TimeLimit = cfg.Schedule.TimeLimit
	if cfg.Schedule.MaxLectureSlots > 0 {
		options.MaxLectureSlots = cfg.Schedule.MaxLectureSlots
	}
	if cfg.Schedule.DefaultFixedEnrollment > 0 {
		options.DefaultFixedEnrollment = cfg.Schedule.DefaultFixedEnrollment
	}
	if cfg.Schedule.AILabRoom != "" {
		options.AILabRoom = cfg.Schedule.AILabRoom
	}
	if cfg.Schedule.NetworkLabRoom != "" {
		options.NetworkLabRoom = cfg.Schedule.NetworkLabRoom
	}
	return options, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("MODE", "compact")
	v.SetDefault("TIME_LIMIT", "120s")
	v.SetDefault("MAX_LECTURE_SLOTS", 6)
	v.SetDefault("DEFAULT_FIXED_ENROLLMENT", 50)
	v.SetDefault("AI_LAB_ROOM", "lab_ai")
	v.SetDefault("NETWORK_LAB_ROOM", "lab_network")

	v.SetDefault("ENGINE", "cp")
	v.SetDefault("SOLVER_CONFIG", "")
	v.SetDefault("ENGINE_WORKERS", 1)

	v.SetDefault("INPUT_DIR", "data")
	v.SetDefault("INPUT_JSON", "")
	v.SetDefault("CSV_DELIMITER", ",")

	v.SetDefault("OUTPUT_DIR", "output")
	v.SetDefault("OUTPUT_NAME", "schedule")
	v.SetDefault("EXPORT_PDF", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("METRICS_FILE", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func parseDelimiter(raw string) (rune, error) {
	switch raw {
	case "", ",":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("csv delimiter must be a single character, got %q", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return r, nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
