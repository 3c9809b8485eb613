// Package secrets resolves secret values from literals, files or AWS SSM Parameter Store.
package secrets

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/wolfeidau/jokko/internal/util"
)

var ErrNoSource = errors.New("no secret source configured")

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Source names where a secret comes from. The first non-empty field wins,
// in the order Value, File, SSMParameter.
type Source struct {
	Value        string
	File         string
	SSMParameter string
}

func (s Source) IsZero() bool {
	return s.Value == "" && s.File == "" && s.SSMParameter == ""
}

// Resolver reads secrets, creating an SSM client only when a parameter is requested.
type Resolver struct {
	ssm    SSMAPI
	awsOpt util.AWSOptions
}

func NewResolver(awsOpts util.AWSOptions) *Resolver {
	return &Resolver{awsOpt: awsOpts}
}

// NewResolverWithClient uses the given SSM client, mainly for tests.
func NewResolverWithClient(client SSMAPI) *Resolver {
	return &Resolver{ssm: client}
}

func (r *Resolver) Resolve(ctx context.Context, src Source) (string, error) {
	switch {
	case src.Value != "":
		return src.Value, nil
	case src.File != "":
		data, err := os.ReadFile(src.File)
		if err != nil {
			return "", fmt.Errorf("failed to read secret file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case src.SSMParameter != "":
		return r.getParameter(ctx, src.SSMParameter)
	}
	return "", ErrNoSource
}

func (r *Resolver) getParameter(ctx context.Context, name string) (string, error) {
	if r.ssm == nil {
		awsCfg, err := util.LoadAWSConfig(ctx, r.awsOpt)
		if err != nil {
			return "", err
		}
		r.ssm = ssm.NewFromConfig(awsCfg)
	}

	output, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get SSM parameter %s: %w", name, err)
	}
	if output.Parameter == nil || output.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", name)
	}
	return *output.Parameter.Value, nil
}

// TLSConfig builds a server TLS config from PEM encoded certificate and key sources.
func (r *Resolver) TLSConfig(ctx context.Context, cert, key Source) (*tls.Config, error) {
	certPEM, err := r.Resolve(ctx, cert)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert: %w", err)
	}
	keyPEM, err := r.Resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load server key: %w", err)
	}

	pair, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{pair},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
