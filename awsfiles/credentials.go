package awsfiles

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/stephnangue/profilebridge/fscache"
	"github.com/stephnangue/profilebridge/logger"
)

// CredentialProfile is one section of the credentials file.
type CredentialProfile struct {
	Name            string
	HasCredentials  bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Expiration comes from the "# Expires 2024-11-10 15:30:00 UTC" comment
	// convention some credential helpers write. Best-effort metadata only.
	Expiration *time.Time
}

// CredentialsFileResult is the parse outcome for the whole file. Warnings
// collect per-section problems that did not abort the parse.
type CredentialsFileResult struct {
	Profiles []CredentialProfile
	Warnings error
}

// expirationPattern matches the trailing comment convention:
//
//	# Expires 2024-11-10 15:30:00 UTC
var expirationPattern = regexp.MustCompile(`Expires\s+(\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2})`)

// CredentialsParser reads ~/.aws/credentials through a FileCache.
type CredentialsParser struct {
	path  string
	cache *fscache.Cache[*CredentialsFileResult]
	log   logger.Logger
}

// NewCredentialsParser creates a parser for the credentials file at path.
func NewCredentialsParser(path string, log logger.Logger) *CredentialsParser {
	p := &CredentialsParser{
		path: path,
		log:  log.WithSubsystem("credentials-parser"),
	}
	p.cache = fscache.New(p.load)
	return p
}

// Parse returns the profiles in the credentials file. A missing file is not
// an error: users without static credentials get an empty result.
func (p *CredentialsParser) Parse() (*CredentialsFileResult, error) {
	result, err := p.cache.Get(p.path)
	if err != nil {
		if fscache.IsNotFound(err) {
			return &CredentialsFileResult{}, nil
		}
		return nil, err
	}
	return result, nil
}

func (p *CredentialsParser) load(path string) (*CredentialsFileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sections, err := ParseINI(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result := &CredentialsFileResult{}
	var warnings *multierror.Error

	for _, section := range sections {
		profile := CredentialProfile{Name: section.Name}

		profile.AccessKeyID, _ = section.Get("aws_access_key_id")
		profile.SecretAccessKey, _ = section.Get("aws_secret_access_key")
		profile.SessionToken, _ = section.Get("aws_session_token")

		switch {
		case profile.AccessKeyID != "" && profile.SecretAccessKey != "":
			profile.HasCredentials = true
		case profile.AccessKeyID != "" || profile.SecretAccessKey != "":
			warnings = multierror.Append(warnings, fmt.Errorf(
				"profile %q: incomplete key pair, ignoring credentials", section.Name))
		}

		for _, comment := range section.Comments {
			if exp := parseExpirationComment(comment); exp != nil {
				profile.Expiration = exp
				break
			}
		}

		result.Profiles = append(result.Profiles, profile)
	}

	if warnings != nil {
		result.Warnings = warnings.ErrorOrNil()
		p.log.Warn("credentials file has malformed sections",
			logger.Int("count", warnings.Len()),
			logger.Err(result.Warnings),
		)
	}

	p.log.Debug("parsed credentials file",
		logger.String("path", path),
		logger.Int("profiles", len(result.Profiles)),
	)
	return result, nil
}

func parseExpirationComment(comment string) *time.Time {
	m := expirationPattern.FindStringSubmatch(comment)
	if m == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", m[1])
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
