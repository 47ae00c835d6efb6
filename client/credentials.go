package client

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const ssmPrefix = "aws:ssm:"

// Credentials is the access id / key pair for the Search Job API.
type Credentials struct {
	AccessID  string
	AccessKey string
}

// ResolveCredentials turns the -a flag value into an id/key pair. The value
// is either "<id>:<key>" or "aws:ssm:<region>:<parameter>", in which case
// the pair is read from AWS SSM Parameter Store. Without a flag value the
// SUMO_UID and SUMO_KEY environment variables are used.
func ResolveCredentials(ctx context.Context, apikey string) (Credentials, error) {
	if apikey == "" {
		uid, key := os.Getenv("SUMO_UID"), os.Getenv("SUMO_KEY")
		if uid == "" || key == "" {
			return Credentials{}, fmt.Errorf("no api key given and SUMO_UID/SUMO_KEY are not set")
		}
		return Credentials{AccessID: uid, AccessKey: key}, nil
	}

	if strings.HasPrefix(apikey, ssmPrefix) {
		parts := strings.Split(apikey, ":")
		if len(parts) != 4 {
			return Credentials{}, fmt.Errorf("ssm key reference must be aws:ssm:<region>:<parameter>, got %q", apikey)
		}
		secret, err := fetchSSMParameter(ctx, parts[2], parts[3])
		if err != nil {
			return Credentials{}, err
		}
		apikey = secret
	}

	id, key, ok := strings.Cut(apikey, ":")
	if !ok || id == "" || key == "" {
		return Credentials{}, fmt.Errorf("api key must be <id>:<key>")
	}
	return Credentials{AccessID: id, AccessKey: key}, nil
}

func fetchSSMParameter(ctx context.Context, region, name string) (string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load aws config: %w", err)
	}

	out, err := ssm.NewFromConfig(cfg).GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch ssm parameter %s: %w", name, err)
	}

	return aws.ToString(out.Parameter.Value), nil
}
