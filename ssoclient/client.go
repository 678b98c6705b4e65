// Package ssoclient exchanges cached SSO access tokens for short-lived role
// credentials through the AWS SSO portal API.
package ssoclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sso"
	"github.com/aws/smithy-go"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/stephnangue/profilebridge/cred"
	"github.com/stephnangue/profilebridge/logger"
)

const (
	requestTimeout = 10 * time.Second
	maxAttempts    = 2
)

// ssoAPI is the subset of the SSO portal client the exchanger needs.
type ssoAPI interface {
	GetRoleCredentials(ctx context.Context, params *sso.GetRoleCredentialsInput, optFns ...func(*sso.Options)) (*sso.GetRoleCredentialsOutput, error)
}

// Client implements cred.Exchanger against the AWS SSO portal. Clients are
// built per sso_region and reused across exchanges.
type Client struct {
	log logger.Logger

	mu      sync.Mutex
	clients map[string]ssoAPI

	// newClient is swapped in tests.
	newClient func(ctx context.Context, region string) (ssoAPI, error)
}

// New creates a Client.
func New(log logger.Logger) *Client {
	c := &Client{
		log:     log.WithSubsystem("sso-client"),
		clients: make(map[string]ssoAPI),
	}
	c.newClient = c.buildClient
	return c
}

// ExchangeRoleCredentials calls GetRoleCredentials with the cached access
// token and maps portal failures onto the cred error taxonomy.
func (c *Client) ExchangeRoleCredentials(ctx context.Context, req cred.ExchangeRequest) (*cred.CredentialSet, error) {
	client, err := c.clientFor(ctx, req.Region)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cred.ErrUpstreamUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	out, err := client.GetRoleCredentials(ctx, &sso.GetRoleCredentialsInput{
		AccessToken: aws.String(req.Token.AccessToken),
		AccountId:   aws.String(req.AccountID),
		RoleName:    aws.String(req.RoleName),
	})
	if err != nil {
		return nil, c.mapError(err, req)
	}

	rc := out.RoleCredentials
	if rc == nil || rc.AccessKeyId == nil || rc.SecretAccessKey == nil {
		return nil, fmt.Errorf("%w: portal returned no credentials", cred.ErrUpstreamUnavailable)
	}

	// The portal reports expiration as epoch milliseconds.
	expiration := time.UnixMilli(rc.Expiration).UTC()

	c.log.Debug("retrieved role credentials",
		logger.String("account_id", req.AccountID),
		logger.String("role_name", req.RoleName),
		logger.Time("expiration", expiration),
	)

	return &cred.CredentialSet{
		AccessKeyID:     aws.ToString(rc.AccessKeyId),
		SecretAccessKey: aws.ToString(rc.SecretAccessKey),
		SessionToken:    aws.ToString(rc.SessionToken),
		Expiration:      &expiration,
	}, nil
}

func (c *Client) clientFor(ctx context.Context, region string) (ssoAPI, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[region]; ok {
		return client, nil
	}

	client, err := c.newClient(ctx, region)
	if err != nil {
		return nil, err
	}
	c.clients[region] = client
	return client, nil
}

// buildClient constructs a portal client for one region. The portal
// authenticates with the bearer token in the request, so the SDK credential
// chain is replaced with anonymous credentials and never touches the
// environment.
func (c *Client) buildClient(ctx context.Context, region string) (ssoAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
		awsconfig.WithHTTPClient(&http.Client{
			Transport: cleanhttp.DefaultPooledTransport(),
			Timeout:   requestTimeout,
		}),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = maxAttempts
			})
		}),
	)
	if err != nil {
		return nil, err
	}
	return sso.NewFromConfig(cfg), nil
}

// mapError folds SDK failures onto the provider error taxonomy. Auth
// rejections mean the cached token is no longer accepted; everything else is
// an upstream problem the user cannot fix locally.
func (c *Client) mapError(err error, req cred.ExchangeRequest) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "UnauthorizedException" || code == "ForbiddenException" {
			c.log.Warn("SSO portal rejected the access token",
				logger.String("account_id", req.AccountID),
				logger.String("role_name", req.RoleName),
				logger.String("code", code),
			)
			return fmt.Errorf("%w: %s", cred.ErrTokenInvalid, apiErr.ErrorMessage())
		}
	}

	if code := httpStatusOf(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: portal returned %d", cred.ErrTokenInvalid, code)
	}

	c.log.Warn("SSO portal call failed",
		logger.String("account_id", req.AccountID),
		logger.String("role_name", req.RoleName),
		logger.Err(err),
	)
	return fmt.Errorf("%w: %v", cred.ErrUpstreamUnavailable, err)
}

func httpStatusOf(err error) int {
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	// Some transport wrappers only expose the status in the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "StatusCode: 401"):
		return http.StatusUnauthorized
	case strings.Contains(msg, "StatusCode: 403"):
		return http.StatusForbidden
	}
	return 0
}
