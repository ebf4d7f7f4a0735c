package aws

const (
	MaxResultsPerPage int32 = 100

	// PricingRegion hosts the AWS Price List API.
	PricingRegion = "us-east-1"

	TermOnDemand string = "JRTCKXETXF"
	TermPerHour  string = "6YS6EN2CT7"

	productFamilyCompute = "Compute Instance"
)

// Pricing is one entry of a Price List GetProducts response, reduced to the
// fields read here.
type Pricing struct {
	Product     Product `json:"product"`
	ServiceCode string  `json:"serviceCode"`
	Terms       Terms   `json:"terms"`
}

type Terms struct {
	OnDemand map[string]SKU `json:"OnDemand"`
}

type Product struct {
	ProductFamily string            `json:"productFamily"`
	Attributes    map[string]string `json:"attributes"`
	Sku           string            `json:"sku"`
}

// SKU is an offer term, keyed "<sku>.<term code>" in Terms.
type SKU struct {
	OfferTermCode   string             `json:"offerTermCode"`
	PriceDimensions map[string]Details `json:"priceDimensions"`
}

// Details is a price dimension, keyed "<sku>.<term code>.<rate code>".
type Details struct {
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

// OnDemandUSD returns the hourly on-demand USD price of the entry.
func (p Pricing) OnDemandUSD() (string, bool) {
	skuOnDemand := p.Product.Sku + "." + TermOnDemand
	skuOnDemandPerHour := skuOnDemand + "." + TermPerHour

	skuEntry, ok := p.Terms.OnDemand[skuOnDemand]
	if !ok {
		return "", false
	}
	dimEntry, ok := skuEntry.PriceDimensions[skuOnDemandPerHour]
	if !ok {
		return "", false
	}
	usd, ok := dimEntry.PricePerUnit["USD"]
	return usd, ok
}
