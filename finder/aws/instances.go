package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	log "github.com/sirupsen/logrus"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

// EC2InstancesInfoURL is the default URL to fetch EC2 instance type data from.
var EC2InstancesInfoURL = "https://ec2instances.info/instances.json"

// ec2InstanceInfo represents a single entry from the ec2instances.info JSON API.
type ec2InstanceInfo struct {
	InstanceType       string  `json:"instance_type"`
	VCpu               int     `json:"vcpu"`
	Memory             float64 `json:"memory"` // GiB
	NetworkPerformance string  `json:"network_performance"`
}

// LoadInstancesInfo fetches every instance type from ec2instances.info.
// Pass nil for httpClient to use http.DefaultClient and an empty url for
// EC2InstancesInfoURL.
func LoadInstancesInfo(ctx context.Context, httpClient *http.Client, url string) ([]provider.InstanceSpec, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if url == "" {
		url = EC2InstancesInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: error creating request for instance data: %w", provider.ErrDataSource, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching instance data from %s: %w", provider.ErrDataSource, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d fetching instance data from %s", provider.ErrDataSource, resp.StatusCode, url)
	}

	var items []ec2InstanceInfo
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: error parsing instance data: %w", provider.ErrDataSource, err)
	}

	specs := make([]provider.InstanceSpec, 0, len(items))
	for _, item := range items {
		specs = append(specs, provider.InstanceSpec{
			InstanceType:       item.InstanceType,
			MemoryGB:           item.Memory,
			VCpu:               int32(item.VCpu),
			NetworkPerformance: item.NetworkPerformance,
		})
	}

	log.Infof("loaded %d instance types from %s", len(specs), url)
	return specs, nil
}

// LoadDescribedInstanceTypes lists instance types with the EC2 DescribeInstanceTypes API.
func LoadDescribedInstanceTypes(ctx context.Context, client ec2.DescribeInstanceTypesAPIClient) ([]provider.InstanceSpec, error) {
	var specs []provider.InstanceSpec
	pag := ec2.NewDescribeInstanceTypesPaginator(client, &ec2.DescribeInstanceTypesInput{})
	for pag.HasMorePages() {
		page, err := pag.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: error fetching available instance types: %w", provider.ErrDataSource, err)
		}
		for _, it := range page.InstanceTypes {
			spec := provider.InstanceSpec{InstanceType: string(it.InstanceType)}
			if it.MemoryInfo != nil {
				spec.MemoryGB = float64(awssdk.ToInt64(it.MemoryInfo.SizeInMiB)) / 1024
			}
			if it.VCpuInfo != nil {
				spec.VCpu = awssdk.ToInt32(it.VCpuInfo.DefaultVCpus)
			}
			if it.NetworkInfo != nil {
				spec.NetworkPerformance = awssdk.ToString(it.NetworkInfo.NetworkPerformance)
			}
			specs = append(specs, spec)
		}
	}

	log.Infof("loaded %d instance types from DescribeInstanceTypes", len(specs))
	return specs, nil
}

// LoadPriceListInstanceTypes lists the "Compute Instance" products of the AWS
// Price List API. The result holds one entry per product, so instance types
// repeat across operating systems and tenancies.
func LoadPriceListInstanceTypes(ctx context.Context, client pricing.GetProductsAPIClient, regionCode string) ([]provider.InstanceSpec, error) {
	filters := []pricingtypes.Filter{termMatch("productFamily", productFamilyCompute)}
	if regionCode != "" {
		filters = append(filters, termMatch("regionCode", regionCode))
	}
	pag := pricing.NewGetProductsPaginator(client, &pricing.GetProductsInput{
		ServiceCode: awssdk.String("AmazonEC2"),
		MaxResults:  awssdk.Int32(MaxResultsPerPage),
		Filters:     filters,
	})

	var specs []provider.InstanceSpec
	for pag.HasMorePages() {
		page, err := pag.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: error while fetching price list products [region=%s]: %w", provider.ErrDataSource, regionCode, err)
		}
		for _, raw := range page.PriceList {
			var item Pricing
			if err := json.Unmarshal([]byte(raw), &item); err != nil {
				return nil, fmt.Errorf("%w: failed to unmarshal pricing item: %w", provider.ErrDataSource, err)
			}
			if item.Product.ProductFamily != productFamilyCompute {
				continue
			}
			spec, err := specFromAttributes(item.Product.Attributes)
			if err != nil {
				log.WithError(err).Debugf("Skipping product %s", item.Product.Sku)
				continue
			}
			specs = append(specs, spec)
		}
	}

	log.Infof("loaded %d compute products from the price list", len(specs))
	return specs, nil
}

func specFromAttributes(attrs map[string]string) (provider.InstanceSpec, error) {
	instanceType := attrs["instanceType"]
	if instanceType == "" {
		return provider.InstanceSpec{}, fmt.Errorf("missing instanceType attribute")
	}
	memory, err := ParseMemoryGB(attrs["memory"])
	if err != nil {
		return provider.InstanceSpec{}, fmt.Errorf("instance type %s: %w", instanceType, err)
	}
	vcpu, err := strconv.ParseInt(strings.TrimSpace(attrs["vcpu"]), 10, 32)
	if err != nil {
		return provider.InstanceSpec{}, fmt.Errorf("instance type %s: invalid vcpu %q: %w", instanceType, attrs["vcpu"], err)
	}
	return provider.InstanceSpec{
		InstanceType:       instanceType,
		MemoryGB:           memory,
		VCpu:               int32(vcpu),
		NetworkPerformance: attrs["networkPerformance"],
	}, nil
}

// ParseMemoryGB parses a price list memory attribute such as "1,952 GiB".
func ParseMemoryGB(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty memory attribute")
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory %q: %w", s, err)
	}
	return v, nil
}
