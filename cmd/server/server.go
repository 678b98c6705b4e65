package server

import (
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/stephnangue/profilebridge/auth"
	"github.com/stephnangue/profilebridge/awsfiles"
	"github.com/stephnangue/profilebridge/catalog"
	"github.com/stephnangue/profilebridge/config"
	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/federation"
	bridgehttp "github.com/stephnangue/profilebridge/http"
	"github.com/stephnangue/profilebridge/listener"
	"github.com/stephnangue/profilebridge/listener/api"
	"github.com/stephnangue/profilebridge/logger"
	"github.com/stephnangue/profilebridge/metadata"
	"github.com/stephnangue/profilebridge/ssoclient"
	"github.com/stephnangue/profilebridge/ssotoken"
	"github.com/stephnangue/profilebridge/version"
)

var (
	configPath string

	ServerCmd = &cobra.Command{
		Use:   "server",
		Short: "Start the profilebridge API server",
		Long: `
Usage: profilebridge server [options]

  Starts the loopback API server that the browser extension talks to.
  Without a config file the server binds to 127.0.0.1:10999 and reads
  the AWS files under ~/.aws.

      $ profilebridge server --config=~/.aws/profilebridge.hcl
`,
		RunE: run,
	}
)

func init() {
	ServerCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (e.g., path/to/profilebridge.hcl)")
}

func run(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := buildLogger(cfg)
	defer log.Close()

	infoKeys := make([]string, 0, 10)
	info := make(map[string]string)
	addInfo := func(key, value string) {
		info[key] = value
		infoKeys = append(infoKeys, key)
	}
	addInfo("version", version.Version)
	addInfo("log level", cfg.LogLevel)
	addInfo("api address", cfg.Listener.Address)
	addInfo("aws dir", cfg.AWS.Dir)
	addInfo("credentials file", cfg.AWS.CredentialsFile)
	addInfo("config file", cfg.AWS.ConfigFile)
	addInfo("sso cache dir", cfg.AWS.SSOCacheDir)
	addInfo("token file", cfg.Auth.TokenFile)

	handler, urlCache, err := buildHandler(cfg, log)
	if err != nil {
		return err
	}
	defer urlCache.Close()

	var ln listener.Listener
	ln, err = api.NewApiListener(api.ApiListenerConfig{
		Logger:      log,
		Address:     cfg.Listener.Address,
		AllowRemote: cfg.Listener.AllowRemote,
	}, handler)
	if err != nil {
		return err
	}
	addInfo("listener", fmt.Sprintf("%s (addr: %q)", ln.Type(), ln.Addr()))

	sort.Strings(infoKeys)
	fmt.Fprintf(cmd.OutOrStdout(), "\n==> Profilebridge server configuration:\n\n")
	titleCaser := cases.Title(language.English, cases.NoLower)
	for _, k := range infoKeys {
		fmt.Fprintf(cmd.OutOrStdout(), "%20s: %s\n", titleCaser.String(k), info[k])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n==> Profilebridge server started! Log data will stream in below:\n")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ln.Start(ctx)
}

// buildHandler wires the engine: parsers, token store, aggregator,
// credential provider, federation builder and the auth stack.
func buildHandler(cfg *config.Config, log logger.Logger) (nethttp.Handler, *federation.URLCache, error) {
	credentialsParser := awsfiles.NewCredentialsParser(cfg.AWS.CredentialsFile, log)
	configParser := awsfiles.NewConfigParser(cfg.AWS.ConfigFile, log)
	tokenStore := ssotoken.NewStore(cfg.AWS.SSOCacheDir, log)

	aggregator := catalog.NewAggregator(catalog.Config{
		Credentials: credentialsParser,
		ConfigFile:  configParser,
		Tokens:      tokenStore,
		Rules:       metadata.NewEngine(customRules(cfg)),
		AWSDir:      cfg.AWS.Dir,
		Logger:      log,
	})

	provider := cred.NewProvider(cred.ProviderConfig{
		Credentials: credentialsParser,
		ConfigFile:  configParser,
		Tokens:      tokenStore,
		Exchanger:   ssoclient.New(log),
		Logger:      log,
	})

	builder := federation.NewBuilder(federation.Config{
		Endpoint:        cfg.Federation.Endpoint,
		Issuer:          cfg.Federation.Issuer,
		SessionDuration: time.Duration(cfg.Federation.SessionDuration) * time.Second,
		Logger:          log,
	})

	urlCache, err := federation.NewURLCache()
	if err != nil {
		return nil, nil, err
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.TokenFile, log)
	if _, err := tokenManager.LoadOrCreate(); err != nil {
		urlCache.Close()
		return nil, nil, fmt.Errorf("failed to prepare API token: %w", err)
	}
	limiter := auth.NewRateLimiter(cfg.Auth.MaxFailedAttempts,
		time.Duration(cfg.Auth.WindowSeconds)*time.Second, log)

	handler := bridgehttp.Handler(&bridgehttp.HandlerProperties{
		Catalog:       aggregator,
		Credentials:   provider,
		Federation:    builder,
		URLCache:      urlCache,
		Authenticator: auth.NewAuthenticator(tokenManager, limiter),
		Logger:        log,
	})
	return handler, urlCache, nil
}

func customRules(cfg *config.Config) []metadata.Rule {
	rules := make([]metadata.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, metadata.Rule{
			Keywords: []string{r.Keyword},
			Color:    r.Color,
			Icon:     r.Icon,
		})
	}
	return rules
}

func buildLogger(cfg *config.Config) logger.Logger {
	if cfg.LogFile != "" {
		logCfg := logger.FileOnlyConfig(cfg.LogFile)
		logCfg.Level = logger.ParseLogLevel(cfg.LogLevel)
		logCfg.FileConfig.MaxSize = cfg.LogRotateMegabytes
		logCfg.FileConfig.MaxBackups = cfg.LogRotateMaxFiles
		return logger.NewZerologLogger(logCfg)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLogLevel(cfg.LogLevel)
	logCfg.Format = logger.ParseOutputFormat(cfg.LogFormat)
	return logger.NewZerologLogger(logCfg)
}
