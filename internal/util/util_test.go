package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "regular address", input: "jean@example.com", expected: "j***@example.com"},
		{name: "single character local part", input: "j@example.com", expected: "j***@example.com"},
		{name: "missing at sign", input: "jean", expected: "***"},
		{name: "empty local part", input: "@example.com", expected: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, MaskEmail(tt.input))
		})
	}
}

func TestLoadAWSConfigStaticCredentials(t *testing.T) {
	ctx := context.Background()

	cfg, err := LoadAWSConfig(ctx, AWSOptions{
		Region:          "eu-west-3",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, "eu-west-3", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(ctx)
	require.NoError(t, err)
	require.Equal(t, "AKIDEXAMPLE", creds.AccessKeyID)
}
