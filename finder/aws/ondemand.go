package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Field: awssdk.String(field),
		Type:  pricingtypes.FilterTypeTermMatch,
		Value: awssdk.String(value),
	}
}

// FetchOnDemandPrices returns the hourly on-demand USD price per instance type
// in a region for shared-tenancy instances of the given operating system.
func FetchOnDemandPrices(ctx context.Context, client pricing.GetProductsAPIClient, region, operatingSystem string) (map[string]decimal.Decimal, error) {
	pag := pricing.NewGetProductsPaginator(
		client,
		&pricing.GetProductsInput{
			ServiceCode: awssdk.String("AmazonEC2"),
			MaxResults:  awssdk.Int32(MaxResultsPerPage),
			Filters: []pricingtypes.Filter{
				termMatch("regionCode", region),
				termMatch("capacitystatus", "Used"),
				termMatch("tenancy", "Shared"),
				termMatch("preInstalledSw", "NA"),
				termMatch("operatingSystem", operatingSystem),
			},
		},
	)

	prices := make(map[string]decimal.Decimal)
	for pag.HasMorePages() {
		pricelist, err := pag.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: error while fetching ondemand price [region=%s]: %w", provider.ErrDataSource, region, err)
		}
		for _, raw := range pricelist.PriceList {
			var item Pricing
			if err := json.Unmarshal([]byte(raw), &item); err != nil {
				return nil, fmt.Errorf("%w: failed to unmarshal pricing item [region=%s]: %w", provider.ErrDataSource, region, err)
			}

			instanceType := item.Product.Attributes["instanceType"]
			if instanceType == "" {
				continue
			}
			if _, seen := prices[instanceType]; seen {
				continue
			}
			usd, ok := item.OnDemandUSD()
			if !ok {
				continue
			}
			value, err := decimal.NewFromString(usd)
			if err != nil {
				log.WithError(err).Warnf("error while parsing ondemand price value from API response [region=%s, type=%s]", region, instanceType)
				continue
			}
			prices[instanceType] = value
		}
	}

	log.Debugf("loaded %d ondemand prices [region=%s, os=%s]", len(prices), region, operatingSystem)
	return prices, nil
}
