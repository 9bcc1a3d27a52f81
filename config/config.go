package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr         string `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  int    `mapstructure:"read_timeout" yaml:"read_timeout"`   // sec
	WriteTimeout int    `mapstructure:"write_timeout" yaml:"write_timeout"` // sec
	MaxUploadMB  int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	TmpSweep     string `mapstructure:"tmp_sweep" yaml:"tmp_sweep"`     // cron spec
	TmpMaxAge    int    `mapstructure:"tmp_max_age" yaml:"tmp_max_age"` // sec
}
type Audio struct {
	SampleRate int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	MaxSeconds float64 `mapstructure:"max_seconds" yaml:"max_seconds"`
	FFmpeg     string  `mapstructure:"ffmpeg" yaml:"ffmpeg"`
}
type Models struct {
	Dir         string `mapstructure:"dir" yaml:"dir"`
	Runtime     string `mapstructure:"runtime" yaml:"runtime"` // onnxruntime shared library
	Text        bool   `mapstructure:"text" yaml:"text"`
	Speech      bool   `mapstructure:"speech" yaml:"speech"`
	TextMaxLen  int    `mapstructure:"text_max_len" yaml:"text_max_len"`
	IntraThread int    `mapstructure:"intra_threads" yaml:"intra_threads"`
}
type Store struct {
	Path string `mapstructure:"path" yaml:"path"`
}
type Root struct {
	Pipeline struct {
		Name      string `mapstructure:"name" yaml:"name"`
		Version   string `mapstructure:"version" yaml:"version"`
		LogLvl    string `mapstructure:"log_level" yaml:"log_level"`
		LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	Audio  Audio  `mapstructure:"audio" yaml:"audio"`
	Models Models `mapstructure:"models" yaml:"models"`
	Server Server `mapstructure:"server" yaml:"server"`
	Store  Store  `mapstructure:"store" yaml:"store"`
	Paths  struct {
		Media   string `mapstructure:"media" yaml:"media"`
		Outputs string `mapstructure:"outputs" yaml:"outputs"`
	} `mapstructure:"paths" yaml:"paths"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "journal-emotion")
	v.SetDefault("pipeline.version", "dev")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.max_seconds", 6.0)
	v.SetDefault("audio.ffmpeg", "ffmpeg")

	v.SetDefault("models.dir", "models")
	v.SetDefault("models.runtime", "")
	v.SetDefault("models.text", true)
	v.SetDefault("models.speech", true)
	v.SetDefault("models.text_max_len", 128)
	v.SetDefault("models.intra_threads", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.tmp_sweep", "@every 10m")
	v.SetDefault("server.tmp_max_age", 3600)

	v.SetDefault("store.path", "data/journal.db")
	v.SetDefault("paths.media", "media")
	v.SetDefault("paths.outputs", "")
}

// Load reads the config file (explicit path, else the CONFIG_ENV guess list),
// applies JOURNAL_* environment overrides and fills defaults. A missing file
// is not an error; every key has a default.
func Load(path string) (*Root, error) {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("journal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// FFMPEG_PATH is honoured for compatibility with existing deployments.
	_ = v.BindEnv("audio.ffmpeg", "JOURNAL_AUDIO_FFMPEG", "FFMPEG_PATH")

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Root) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.MaxSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.max_seconds must be positive, got %g", c.Audio.MaxSeconds))
	}
	if c.Models.TextMaxLen <= 0 {
		errs = append(errs, fmt.Errorf("models.text_max_len must be positive, got %d", c.Models.TextMaxLen))
	}
	return errors.Join(errs...)
}

// YAML renders the effective configuration.
func (c *Root) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Logger configures the process-wide logrus logger from the pipeline section.
func (c *Root) Logger() *logrus.Logger {
	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(c.Pipeline.LogLvl); err == nil {
		log.SetLevel(lvl)
	} else {
		log.WithField("log_level", c.Pipeline.LogLvl).Warn("unknown log level, using info")
		log.SetLevel(logrus.InfoLevel)
	}
	if c.Pipeline.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
