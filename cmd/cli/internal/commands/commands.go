package commands

import "github.com/wolfeidau/jokko/internal/util"

type Globals struct {
	Debug   bool
	Version string
}

type AWSFlags struct {
	Region          string `help:"AWS region" env:"REGION"`
	AccessKeyID     string `help:"AWS access key ID" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `help:"AWS secret access key" env:"SECRET_ACCESS_KEY"`
	EndpointURL     string `help:"endpoint URL override (for LocalStack or MinIO)" env:"ENDPOINT_URL"`
}

func (a AWSFlags) Options() util.AWSOptions {
	return util.AWSOptions{Region: a.Region, AccessKeyID: a.AccessKeyID, SecretAccessKey: a.SecretAccessKey}
}
