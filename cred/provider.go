package cred

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/stephnangue/profilebridge/awsfiles"
	"github.com/stephnangue/profilebridge/logger"
	"github.com/stephnangue/profilebridge/ssotoken"
)

// ExchangeRequest identifies one role-credentials exchange.
type ExchangeRequest struct {
	Token     *ssotoken.Token
	Region    string // sso_region of the profile
	AccountID string
	RoleName  string
}

// Exchanger trades a cached SSO token for short-lived role credentials.
type Exchanger interface {
	ExchangeRoleCredentials(ctx context.Context, req ExchangeRequest) (*CredentialSet, error)
}

// Provider materializes credentials for a profile name, from the
// credentials file directly or through an SSO token exchange.
type Provider struct {
	credentials *awsfiles.CredentialsParser
	config      *awsfiles.ConfigParser
	tokens      *ssotoken.Store
	exchanger   Exchanger
	log         logger.Logger

	// group coalesces concurrent exchanges for the same profile name so a
	// burst of UI requests produces one upstream call.
	group singleflight.Group
}

// ProviderConfig wires a Provider.
type ProviderConfig struct {
	Credentials *awsfiles.CredentialsParser
	ConfigFile  *awsfiles.ConfigParser
	Tokens      *ssotoken.Store
	Exchanger   Exchanger
	Logger      logger.Logger
}

// NewProvider creates a Provider.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		credentials: cfg.Credentials,
		config:      cfg.ConfigFile,
		tokens:      cfg.Tokens,
		exchanger:   cfg.Exchanger,
		log:         cfg.Logger.WithSubsystem("cred-provider"),
	}
}

// Resolve returns usable credentials for profileName. Static profiles are a
// pure read; SSO profiles go through the single-flight exchange path.
func (p *Provider) Resolve(ctx context.Context, profileName string) (*CredentialSet, error) {
	credResult, err := p.credentials.Parse()
	if err != nil {
		return nil, err
	}

	for _, profile := range credResult.Profiles {
		if profile.Name == profileName && profile.HasCredentials {
			p.log.Debug("resolved static credentials",
				logger.String("profile", profileName),
			)
			return &CredentialSet{
				AccessKeyID:     profile.AccessKeyID,
				SecretAccessKey: profile.SecretAccessKey,
				SessionToken:    profile.SessionToken,
				Expiration:      profile.Expiration,
			}, nil
		}
	}

	ssoProfile, err := p.findSSOProfile(profileName)
	if err != nil {
		return nil, err
	}

	v, err, shared := p.group.Do(profileName, func() (interface{}, error) {
		return p.exchange(ctx, ssoProfile)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.log.Debug("coalesced concurrent resolve",
			logger.String("profile", profileName),
		)
	}
	return v.(*CredentialSet), nil
}

func (p *Provider) findSSOProfile(profileName string) (*awsfiles.SSOProfile, error) {
	configResult, err := p.config.Parse()
	if err != nil {
		return nil, err
	}
	for i := range configResult.Profiles {
		if configResult.Profiles[i].Name == profileName {
			return &configResult.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCredentials, profileName)
}

func (p *Provider) exchange(ctx context.Context, profile *awsfiles.SSOProfile) (*CredentialSet, error) {
	token, err := p.tokens.Lookup(profile.StartURL)
	if err != nil {
		if errors.Is(err, ssotoken.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %s, run: aws sso login --profile %s",
				ErrSSOTokenMissingOrExpired, profile.Name, profile.Name)
		}
		return nil, err
	}

	creds, err := p.exchanger.ExchangeRoleCredentials(ctx, ExchangeRequest{
		Token:     token,
		Region:    profile.SSORegion,
		AccountID: profile.AccountID,
		RoleName:  profile.RoleName,
	})
	if err != nil {
		return nil, err
	}

	p.log.Info("exchanged SSO token for role credentials",
		logger.String("profile", profile.Name),
		logger.String("account_id", profile.AccountID),
		logger.String("role_name", profile.RoleName),
	)
	return creds, nil
}
