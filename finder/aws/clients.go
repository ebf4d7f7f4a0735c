package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// EC2Client combines the EC2 API interfaces needed by spot-finder.
type EC2Client interface {
	ec2.DescribeSpotPriceHistoryAPIClient
	ec2.DescribeInstanceTypesAPIClient
}

// ClientFactory creates AWS service clients, enabling dependency injection for testing.
type ClientFactory interface {
	NewEC2Client(ctx context.Context, region string) (EC2Client, error)
	NewPricingClient(ctx context.Context) (pricing.GetProductsAPIClient, error)
}
