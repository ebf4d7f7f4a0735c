package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"

	"github.com/pixelfederation/spot-finder/finder/config"
	"github.com/pixelfederation/spot-finder/finder/provider"
)

// SDKClientFactory creates real AWS SDK clients. Implements ClientFactory.
type SDKClientFactory struct {
	creds config.Credentials
}

// NewSDKClientFactory returns a factory that authenticates every client with creds.
func NewSDKClientFactory(creds config.Credentials) *SDKClientFactory {
	return &SDKClientFactory{creds: creds}
}

func (f *SDKClientFactory) NewEC2Client(ctx context.Context, region string) (EC2Client, error) {
	cfg, err := f.load(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config for EC2 [region=%s]: %w", provider.ErrDataSource, region, err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func (f *SDKClientFactory) NewPricingClient(ctx context.Context) (pricing.GetProductsAPIClient, error) {
	cfg, err := f.load(ctx, PricingRegion)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load AWS config for Pricing API: %w", provider.ErrDataSource, err)
	}
	return pricing.NewFromConfig(cfg), nil
}

func (f *SDKClientFactory) load(ctx context.Context, region string) (awssdk.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, f.loadOptions(region)...)
}

func (f *SDKClientFactory) loadOptions(region string) []func(*awsconfig.LoadOptions) error {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	switch {
	case f.creds.Static():
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(f.creds.AccessKeyID, f.creds.SecretAccessKey, f.creds.SessionToken)))
	case f.creds.Profile != "":
		opts = append(opts, awsconfig.WithSharedConfigProfile(f.creds.Profile))
	}
	return opts
}
