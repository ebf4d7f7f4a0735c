package finder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"

	"github.com/pixelfederation/spot-finder/finder/aws"
	"github.com/pixelfederation/spot-finder/finder/catalog"
)

// mockEC2Client implements aws.EC2Client for testing.
type mockEC2Client struct {
	DescribeSpotPriceHistoryFn func(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

func (m *mockEC2Client) DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
	return m.DescribeSpotPriceHistoryFn(ctx, params, optFns...)
}

func (m *mockEC2Client) DescribeInstanceTypes(ctx context.Context, params *ec2.DescribeInstanceTypesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error) {
	return nil, fmt.Errorf("DescribeInstanceTypes not expected")
}

// mockPricingClient implements pricing.GetProductsAPIClient for testing.
type mockPricingClient struct {
	GetProductsFn func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

func (m *mockPricingClient) GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	return m.GetProductsFn(ctx, params, optFns...)
}

// mockClientFactory hands out one EC2 client per region.
type mockClientFactory struct {
	mu            sync.Mutex
	ec2Clients    map[string]aws.EC2Client
	ec2Err        error
	pricingClient pricing.GetProductsAPIClient
	ec2Calls      int
}

func (f *mockClientFactory) NewEC2Client(ctx context.Context, region string) (aws.EC2Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ec2Calls++
	if f.ec2Err != nil {
		return nil, f.ec2Err
	}
	c, ok := f.ec2Clients[region]
	if !ok {
		return nil, fmt.Errorf("no mock client for region %s", region)
	}
	return c, nil
}

func (f *mockClientFactory) NewPricingClient(ctx context.Context) (pricing.GetProductsAPIClient, error) {
	if f.pricingClient == nil {
		return nil, fmt.Errorf("no mock pricing client")
	}
	return f.pricingClient, nil
}

// staticSpotClient returns the given prices as a single page.
func staticSpotClient(prices ...ec2types.SpotPrice) *mockEC2Client {
	return &mockEC2Client{
		DescribeSpotPriceHistoryFn: func(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
			return &ec2.DescribeSpotPriceHistoryOutput{SpotPriceHistory: prices}, nil
		},
	}
}

func spot(instanceType, price, az string) ec2types.SpotPrice {
	return ec2types.SpotPrice{
		InstanceType:       ec2types.InstanceType(instanceType),
		SpotPrice:          awssdk.String(price),
		AvailabilityZone:   awssdk.String(az),
		ProductDescription: ec2types.RIProductDescriptionLinuxUnix,
	}
}

func mustCatalog(t *testing.T, csv string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("building test catalog: %v", err)
	}
	return c
}

// newTestAggregator builds an aggregator reading cat instead of a file.
func newTestAggregator(t *testing.T, opts Options, factory aws.ClientFactory, cat *catalog.Catalog) *Aggregator {
	t.Helper()
	if opts.CatalogPath == "" {
		opts.CatalogPath = "instance-types.csv"
	}
	if opts.Limit == 0 {
		opts.Limit = 100
	}
	a, err := NewAggregator(opts, factory, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.loadCatalog = func(string) (*catalog.Catalog, error) { return cat, nil }
	return a
}
