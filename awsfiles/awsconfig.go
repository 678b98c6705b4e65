package awsfiles

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/stephnangue/profilebridge/fscache"
	"github.com/stephnangue/profilebridge/logger"
)

// SSOProfile is a [profile X] section of the config file carrying SSO keys.
type SSOProfile struct {
	Name       string
	StartURL   string
	SSOSession string // name of the [sso-session X] section, when used
	SSORegion  string
	AccountID  string
	RoleName   string
	Region     string // regular aws region for the profile
}

// ConfigFileResult is the parse outcome for the whole config file.
type ConfigFileResult struct {
	Profiles []SSOProfile
	Warnings error
}

// ConfigParser reads ~/.aws/config through a FileCache and extracts SSO
// profiles. Non-SSO sections belong to the credentials file and are ignored.
type ConfigParser struct {
	path  string
	cache *fscache.Cache[*ConfigFileResult]
	log   logger.Logger
}

// NewConfigParser creates a parser for the config file at path.
func NewConfigParser(path string, log logger.Logger) *ConfigParser {
	p := &ConfigParser{
		path: path,
		log:  log.WithSubsystem("config-parser"),
	}
	p.cache = fscache.New(p.load)
	return p
}

// Parse returns the SSO profiles in the config file. A missing file yields an
// empty result.
func (p *ConfigParser) Parse() (*ConfigFileResult, error) {
	result, err := p.cache.Get(p.path)
	if err != nil {
		if fscache.IsNotFound(err) {
			return &ConfigFileResult{}, nil
		}
		return nil, err
	}
	return result, nil
}

type ssoSession struct {
	startURL string
	region   string
}

func (p *ConfigParser) load(path string) (*ConfigFileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sections, err := ParseINI(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// First pass: sso-session sections, referenced by name from profiles.
	sessions := make(map[string]ssoSession)
	for _, section := range sections {
		name, ok := strings.CutPrefix(section.Name, "sso-session ")
		if !ok {
			continue
		}
		startURL, _ := section.Get("sso_start_url")
		region, _ := section.Get("sso_region")
		sessions[strings.TrimSpace(name)] = ssoSession{startURL: startURL, region: region}
	}

	result := &ConfigFileResult{}
	var warnings *multierror.Error

	for _, section := range sections {
		name := profileName(section.Name)
		if name == "" {
			continue
		}

		profile := SSOProfile{Name: name}
		profile.StartURL, _ = section.Get("sso_start_url")
		profile.SSOSession, _ = section.Get("sso_session")
		profile.SSORegion, _ = section.Get("sso_region")
		profile.AccountID, _ = section.Get("sso_account_id")
		profile.RoleName, _ = section.Get("sso_role_name")
		profile.Region, _ = section.Get("region")

		if profile.StartURL == "" && profile.SSOSession == "" {
			// not an SSO profile
			continue
		}

		// Resolve the session reference into a concrete start URL / region.
		if profile.SSOSession != "" {
			session, ok := sessions[profile.SSOSession]
			if !ok {
				warnings = multierror.Append(warnings, fmt.Errorf(
					"profile %q: sso_session %q has no matching [sso-session] section, skipping",
					name, profile.SSOSession))
				continue
			}
			if profile.StartURL == "" {
				profile.StartURL = session.startURL
			}
			if profile.SSORegion == "" {
				profile.SSORegion = session.region
			}
		}

		if profile.StartURL == "" || profile.AccountID == "" || profile.RoleName == "" {
			warnings = multierror.Append(warnings, fmt.Errorf(
				"profile %q: missing required SSO keys, skipping", name))
			continue
		}

		if profile.SSORegion == "" {
			profile.SSORegion = "us-east-1"
		}

		result.Profiles = append(result.Profiles, profile)
	}

	if warnings != nil {
		result.Warnings = warnings.ErrorOrNil()
		p.log.Warn("config file has malformed SSO sections",
			logger.Int("count", warnings.Len()),
			logger.Err(result.Warnings),
		)
	}

	p.log.Debug("parsed config file",
		logger.String("path", path),
		logger.Int("sso_profiles", len(result.Profiles)),
	)
	return result, nil
}

// profileName extracts the profile name from a config file section header:
// "profile X" sections and the bare "default" section name profiles,
// "sso-session X" and anything else are not profiles.
func profileName(section string) string {
	if name, ok := strings.CutPrefix(section, "profile "); ok {
		return strings.TrimSpace(name)
	}
	if section == "default" {
		return section
	}
	return ""
}
