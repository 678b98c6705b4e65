package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/stephnangue/profilebridge/awsfiles"
	"github.com/stephnangue/profilebridge/logger"
	"github.com/stephnangue/profilebridge/metadata"
	"github.com/stephnangue/profilebridge/ssotoken"
)

// Aggregator builds the profile catalog. The catalog is rebuilt on every
// call; the file parsers behind it are mtime-cached, so an unchanged
// filesystem costs two stats.
type Aggregator struct {
	credentials *awsfiles.CredentialsParser
	config      *awsfiles.ConfigParser
	tokens      *ssotoken.Store
	rules       *metadata.Engine
	nossoFile   string
	log         logger.Logger
	now         func() time.Time
}

// Config wires an Aggregator.
type Config struct {
	Credentials *awsfiles.CredentialsParser
	ConfigFile  *awsfiles.ConfigParser
	Tokens      *ssotoken.Store
	Rules       *metadata.Engine
	AWSDir      string
	Logger      logger.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{
		credentials: cfg.Credentials,
		config:      cfg.ConfigFile,
		tokens:      cfg.Tokens,
		rules:       cfg.Rules,
		nossoFile:   filepath.Join(cfg.AWSDir, ".nosso"),
		log:         cfg.Logger.WithSubsystem("aggregator"),
		now:         time.Now,
	}
}

// Aggregate merges both files into one catalog. SSO token state is NOT
// consulted: SSO profiles carry a static unknown expiry. Use
// AggregateEnriched for live token checks.
func (a *Aggregator) Aggregate() ([]Profile, error) {
	return a.aggregate(false, nil)
}

// AggregateEnriched is Aggregate plus a live SSO token check per SSO
// profile, optionally filtered to the given names. It does I/O per distinct
// start URL and is invoked explicitly by the caller, not on every listing.
func (a *Aggregator) AggregateEnriched(names []string) ([]Profile, error) {
	return a.aggregate(true, names)
}

func (a *Aggregator) aggregate(enrich bool, names []string) ([]Profile, error) {
	now := a.now()

	credResult, err := a.credentials.Parse()
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(credResult.Profiles))
	index := make(map[string]int, len(credResult.Profiles))

	for _, cred := range credResult.Profiles {
		profile := Profile{
			Name:           cred.Name,
			Source:         SourceCredentialsFile,
			HasCredentials: cred.HasCredentials,
			Expiration:     cred.Expiration,
		}
		index[cred.Name] = len(profiles)
		profiles = append(profiles, profile)
	}

	if a.ssoDisabled() {
		a.log.Debug("found .nosso file, skipping SSO profiles")
	} else {
		configResult, err := a.config.Parse()
		if err != nil {
			return nil, err
		}

		for _, sso := range configResult.Profiles {
			if i, ok := index[sso.Name]; ok {
				// Present in both files: credential presence from the
				// credentials file wins, SSO metadata is still attached.
				profiles[i].IsSSO = true
				profiles[i].SSOStartURL = sso.StartURL
				profiles[i].SSOSession = sso.SSOSession
				if profiles[i].Region == "" {
					profiles[i].Region = sso.Region
				}
				continue
			}

			index[sso.Name] = len(profiles)
			profiles = append(profiles, Profile{
				Name:        sso.Name,
				Source:      SourceSSOConfig,
				Region:      sso.Region,
				IsSSO:       true,
				SSOStartURL: sso.StartURL,
				SSOSession:  sso.SSOSession,
			})
		}
	}

	for i := range profiles {
		p := &profiles[i]
		p.Color, p.Icon = a.rules.Classify(p.Name)
		p.recomputeExpired(now)

		if enrich && p.IsSSO && selected(names, p.Name) {
			a.enrichFromToken(p, now)
		}
	}

	a.log.Debug("aggregated profiles",
		logger.Int("count", len(profiles)),
		logger.Bool("enriched", enrich),
	)
	return profiles, nil
}

// enrichFromToken replaces the static expiry of an SSO profile with the live
// state of its cached token.
func (a *Aggregator) enrichFromToken(p *Profile, now time.Time) {
	token, err := a.tokens.Lookup(p.SSOStartURL)
	if err != nil {
		if !errors.Is(err, ssotoken.ErrNotFound) {
			a.log.Warn("SSO token lookup failed",
				logger.String("profile", p.Name),
				logger.Err(err),
			)
		}
		// Absent or expired token: the profile needs a fresh login.
		p.Expiration = nil
		p.Expired = true
		if p.Source == SourceSSOConfig {
			p.HasCredentials = false
		}
		return
	}

	expiresAt := token.ExpiresAt
	p.Expiration = &expiresAt
	p.Expired = expiresAt.Before(now)
	p.HasCredentials = true
}

func selected(names []string, name string) bool {
	return len(names) == 0 || slices.Contains(names, name)
}

func (a *Aggregator) ssoDisabled() bool {
	_, err := os.Stat(a.nossoFile)
	return err == nil
}
