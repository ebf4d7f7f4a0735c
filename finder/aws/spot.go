package aws

import (
	"context"
	"fmt"
	"regexp"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	log "github.com/sirupsen/logrus"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

// SpotQuery selects the spot price history fetched for one region.
type SpotQuery struct {
	Region string
	// Since bounds the look-back window. The zero value leaves the window to the API.
	Since               time.Time
	ProductDescriptions []string
	InstanceRegexes     []*regexp.Regexp
}

// SpotPrices is everything fetched for one region, in arrival order.
type SpotPrices struct {
	Region       string
	Observations []provider.PriceObservation
	Pages        int
	Skipped      int
}

// FetchSpotPrices walks every page of the spot price history of a region.
// Any page error aborts the fetch; no partial result is returned.
func FetchSpotPrices(ctx context.Context, client ec2.DescribeSpotPriceHistoryAPIClient, q SpotQuery) (*SpotPrices, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		MaxResults:          awssdk.Int32(MaxResultsPerPage),
		ProductDescriptions: q.ProductDescriptions,
	}
	if !q.Since.IsZero() {
		input.StartTime = awssdk.Time(q.Since)
	}

	out := &SpotPrices{Region: q.Region}
	pag := ec2.NewDescribeSpotPriceHistoryPaginator(client, input)
	for pag.HasMorePages() {
		history, err := pag.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: error while fetching spot price history [region=%s, page=%d]: %w", provider.ErrDataSource, q.Region, out.Pages+1, err)
		}
		out.Pages++

		for _, price := range history.SpotPriceHistory {
			instanceType := string(price.InstanceType)
			if instanceType == "" {
				return nil, fmt.Errorf("%w: spot price without instance type [region=%s, page=%d]", provider.ErrDataSource, q.Region, out.Pages)
			}
			if !provider.IsMatchAny(q.InstanceRegexes, instanceType) {
				log.Debugf("Skipping instance type: %s", instanceType)
				out.Skipped++
				continue
			}

			obs := provider.PriceObservation{
				InstanceType:       instanceType,
				SpotPrice:          provider.ParsePrice(price.SpotPrice),
				AvailabilityZone:   awssdk.ToString(price.AvailabilityZone),
				Region:             q.Region,
				ProductDescription: string(price.ProductDescription),
				Timestamp:          awssdk.ToTime(price.Timestamp),
			}
			if !obs.SpotPrice.Valid {
				log.Debugf("unparsable spot price %q [region=%s, az=%s, type=%s]", awssdk.ToString(price.SpotPrice), q.Region, obs.AvailabilityZone, instanceType)
			}
			out.Observations = append(out.Observations, obs)
		}
		log.Debugf("fetched spot price page %d [region=%s, observations=%d]", out.Pages, q.Region, len(out.Observations))
	}
	return out, nil
}
