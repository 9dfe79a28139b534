package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Seednode/blanks/games/blanks"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	decks          string
	minPlayers     int
	pointsToWin    int
	port           int
	prefix         string
	profile        bool
	rateBurst      int
	rateLimit      float64
	reconnectGrace time.Duration
	roomTimeout    time.Duration
	roundsToWin    int
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	log zerolog.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.reconnectGrace <= 0 {
		return fmt.Errorf("invalid reconnect grace (must be positive): %s", c.reconnectGrace)
	}
	if c.roomTimeout < 0 {
		return fmt.Errorf("invalid room timeout (must not be negative): %s", c.roomTimeout)
	}
	if c.pointsToWin < blanks.MinLimit || c.pointsToWin > blanks.MaxLimit {
		return fmt.Errorf("invalid points to win (must be between %d-%d inclusive): %d", blanks.MinLimit, blanks.MaxLimit, c.pointsToWin)
	}
	if c.roundsToWin < blanks.MinLimit || c.roundsToWin > blanks.MaxLimit {
		return fmt.Errorf("invalid rounds to win (must be between %d-%d inclusive): %d", blanks.MinLimit, blanks.MaxLimit, c.roundsToWin)
	}
	if c.minPlayers < 1 {
		return fmt.Errorf("invalid minimum player count (must be at least 1): %d", c.minPlayers)
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return fmt.Errorf("invalid rate limit (must be positive): %g/s, burst %d", c.rateLimit, c.rateBurst)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BLANKS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "blanks",
		Short:         "Serves a fill-in-the-blanks party card game over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.log = newLogger(cfg, os.Stderr)

			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BLANKS_BIND)")
	fs.StringVar(&cfg.decks, "decks", "", "directory containing questions.json, answers.json and characters.json (env: BLANKS_DECKS)")
	fs.IntVar(&cfg.minPlayers, "min-players", blanks.DefaultMinPlayers, "players required to start a game (env: BLANKS_MIN_PLAYERS)")
	fs.IntVar(&cfg.pointsToWin, "points-to-win", blanks.DefaultPointsToWin, "default points needed to win a game (env: BLANKS_POINTS_TO_WIN)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BLANKS_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: BLANKS_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BLANKS_PROFILE)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 20, "events a connection may send in a burst (env: BLANKS_RATE_BURST)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 10, "sustained events per second allowed per connection (env: BLANKS_RATE_LIMIT)")
	fs.DurationVar(&cfg.reconnectGrace, "reconnect-grace", blanks.DefaultReconnectGrace, "time a disconnected player has to reconnect before being removed (env: BLANKS_RECONNECT_GRACE)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 10*time.Minute, "time before empty rooms are deleted, 0 to disable (env: BLANKS_ROOM_TIMEOUT)")
	fs.IntVar(&cfg.roundsToWin, "rounds-to-win", blanks.DefaultRoundsToWin, "default number of rounds in a game (env: BLANKS_ROUNDS_TO_WIN)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BLANKS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BLANKS_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BLANKS_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BLANKS_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("blanks v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
