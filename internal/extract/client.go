// Package extract pulls cost data from AWS Cost Explorer per payer
// account and normalises it into flat records. Handles pagination,
// request pacing, and dust filtering; everything downstream assumes the
// records it returns are already clean.
package extract

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
)

// DefaultRegion is where the Cost Explorer API lives. CE is a global
// service fronted out of us-east-1 regardless of where the spend is.
const DefaultRegion = "us-east-1"

// CostExplorerAPI is the slice of the Cost Explorer client the extractor
// uses. Satisfied by *costexplorer.Client; faked in tests.
type CostExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// ClientOptions control how the Cost Explorer client is built.
type ClientOptions struct {
	Region string
	// Static credentials override the default provider chain when set.
	// Normal deployments leave these empty and rely on the environment.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewClient builds a Cost Explorer client from the default AWS config
// chain, optionally pinned to static credentials.
func NewClient(ctx context.Context, opts ClientOptions) (*costexplorer.Client, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("extract: load aws config: %w", err)
	}

	return costexplorer.NewFromConfig(cfg), nil
}
