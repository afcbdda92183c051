package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studycycle/backend/internal/logger"
)

// Config is resolved from flags, CYCLECTL_* variables and an optional
// .cyclectl.yaml in the working or home directory, in that order.
type Config struct {
	StorePath    string
	CycleFile    string
	User         string
	TickInterval time.Duration
	AutoAdvance  bool
	LogLevel     string
	JSON         bool
}

type rootOptions struct {
	v   *viper.Viper
	cfg Config
	log *logger.Logger
}

func (o *rootOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("store", "", "Directory holding the saved timer state.")
	flags.StringP("file", "f", "", "YAML file with the subjects and settings.")
	flags.String("user", "", "Name the state is saved under.")
	flags.Bool("json", false, "Output as JSON.")
	flags.String("log-level", "", "One of debug, info, warn, error.")
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetDefault("store", "~/.cyclectl")
	v.SetDefault("file", "./cycle.yaml")
	v.SetDefault("user", "local")
	v.SetDefault("tick", "1s")
	v.SetDefault("auto_advance", true)
	v.SetDefault("log-level", "warn")
	v.SetConfigName(".cyclectl")
	v.SetEnvPrefix("CYCLECTL")
	v.AutomaticEnv()

	if override := os.Getenv("CYCLECTL_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	for _, name := range []string{"store", "file", "user", "json", "log-level"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}

	storePath, err := homedir.Expand(v.GetString("store"))
	if err != nil {
		return fmt.Errorf("expand store path: %w", err)
	}
	cycleFile, err := homedir.Expand(v.GetString("file"))
	if err != nil {
		return fmt.Errorf("expand cycle file: %w", err)
	}
	tick := v.GetDuration("tick")
	if tick <= 0 {
		tick = time.Second
	}

	o.v = v
	o.cfg = Config{
		StorePath:    storePath,
		CycleFile:    cycleFile,
		User:         v.GetString("user"),
		TickInterval: tick,
		AutoAdvance:  v.GetBool("auto_advance"),
		LogLevel:     v.GetString("log-level"),
		JSON:         v.GetBool("json"),
	}
	o.log = logger.New(cmd.ErrOrStderr(), "text", o.cfg.LogLevel)
	return nil
}
