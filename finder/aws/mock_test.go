package aws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// mockEC2Client implements EC2Client for testing.
type mockEC2Client struct {
	DescribeSpotPriceHistoryFn func(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
	DescribeInstanceTypesFn    func(ctx context.Context, params *ec2.DescribeInstanceTypesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error)
}

func (m *mockEC2Client) DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error) {
	return m.DescribeSpotPriceHistoryFn(ctx, params, optFns...)
}

func (m *mockEC2Client) DescribeInstanceTypes(ctx context.Context, params *ec2.DescribeInstanceTypesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstanceTypesOutput, error) {
	return m.DescribeInstanceTypesFn(ctx, params, optFns...)
}

// mockPricingClient implements pricing.GetProductsAPIClient for testing.
type mockPricingClient struct {
	GetProductsFn func(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

func (m *mockPricingClient) GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	return m.GetProductsFn(ctx, params, optFns...)
}

// makePriceListItem builds one GetProducts PriceList entry for testing.
func makePriceListItem(t *testing.T, sku string, attrs map[string]string, priceUSD string) string {
	t.Helper()
	item := Pricing{
		Product: Product{
			ProductFamily: productFamilyCompute,
			Attributes:    attrs,
			Sku:           sku,
		},
		ServiceCode: "AmazonEC2",
	}
	if priceUSD != "" {
		item.Terms.OnDemand = map[string]SKU{
			sku + "." + TermOnDemand: {
				OfferTermCode: TermOnDemand,
				PriceDimensions: map[string]Details{
					sku + "." + TermOnDemand + "." + TermPerHour: {
						Unit:         "Hrs",
						PricePerUnit: map[string]string{"USD": priceUSD},
					},
				},
			},
		}
	}
	b, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal price list item: %v", err)
	}
	return string(b)
}
