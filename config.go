package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	clientID       string
	clientSecret   string
	market         string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.market == "" {
		return errors.New("--market must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// loadCredentials fills in the catalog client id and secret from a local
// .env file or the conventional SPOTIFY_* environment variables when the
// flags are unset. Missing credentials are not fatal here; the token
// cache reports them per request so a misconfigured deploy still serves
// its health endpoints.
func (c *Config) loadCredentials() {
	if err := godotenv.Load(); err != nil {
		logf(c, "START: no .env file found, using environment variables")
	}
	if c.clientID == "" {
		c.clientID = os.Getenv("SPOTIFY_CLIENT_ID")
	}
	if c.clientSecret == "" {
		c.clientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	}
	if c.clientID == "" || c.clientSecret == "" {
		logf(c, "START: catalog credentials are not set; catalog requests will fail")
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ALBUMGUESSER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "albumguesser",
		Short:         "A browser game of guessing an artist's albums by cover art or track listing.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.loadCredentials()
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: ALBUMGUESSER_BIND)")
	fs.StringVar(&cfg.clientID, "client-id", "", "catalog client id (env: ALBUMGUESSER_CLIENT_ID or SPOTIFY_CLIENT_ID)")
	fs.StringVar(&cfg.clientSecret, "client-secret", "", "catalog client secret (env: ALBUMGUESSER_CLIENT_SECRET or SPOTIFY_CLIENT_SECRET)")
	fs.StringVar(&cfg.market, "market", "MX", "market to scope album listings to (env: ALBUMGUESSER_MARKET)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: ALBUMGUESSER_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: ALBUMGUESSER_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: ALBUMGUESSER_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are ended (env: ALBUMGUESSER_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: ALBUMGUESSER_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: ALBUMGUESSER_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: ALBUMGUESSER_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: ALBUMGUESSER_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("albumguesser v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
