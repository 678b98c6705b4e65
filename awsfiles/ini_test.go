package awsfiles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseINI_Basic(t *testing.T) {
	input := `
[default]
aws_access_key_id = AKIAEXAMPLE
aws_secret_access_key = secret

[work]
; profile for work
region = eu-west-1
`
	sections, err := ParseINI(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	assert.Equal(t, "default", sections[0].Name)
	assert.Equal(t, []Pair{
		{Key: "aws_access_key_id", Value: "AKIAEXAMPLE"},
		{Key: "aws_secret_access_key", Value: "secret"},
	}, sections[0].Pairs)

	assert.Equal(t, "work", sections[1].Name)
	assert.Equal(t, []string{"; profile for work"}, sections[1].Comments)

	region, ok := sections[1].Get("region")
	assert.True(t, ok)
	assert.Equal(t, "eu-west-1", region)
}

func TestParseINI_TrimsWhitespace(t *testing.T) {
	input := "  [ spaced ]  \n   key   =   value with spaces   \n"
	sections, err := ParseINI(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "spaced", sections[0].Name)
	assert.Equal(t, Pair{Key: "key", Value: "value with spaces"}, sections[0].Pairs[0])
}

func TestParseINI_IgnoresPreamble(t *testing.T) {
	input := "stray = line\n# stray comment\n[one]\nk = v\n"
	sections, err := ParseINI(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "one", sections[0].Name)
}

func TestEncodeINI_RoundTrip(t *testing.T) {
	sections := []Section{
		{
			Name:     "prod-admin",
			Comments: []string{"# Expires 2024-11-10 15:30:00 UTC"},
			Pairs: []Pair{
				{Key: "aws_access_key_id", Value: "AKIAEXAMPLE"},
				{Key: "aws_secret_access_key", Value: "secret"},
				{Key: "aws_session_token", Value: "token"},
			},
		},
		{
			Name:  "profile dev-sso",
			Pairs: []Pair{{Key: "sso_start_url", Value: "https://corp.awsapps.com/start"}},
		},
	}

	parsed, err := ParseINI(strings.NewReader(EncodeINI(sections)))
	require.NoError(t, err)
	assert.Equal(t, sections, parsed)
}
