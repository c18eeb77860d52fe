package ingestion

import "regexp"

// Registered retailer names as seeded in the businesses table.
const (
	RetailerAmazon = "Amazon"
	RetailerEBay   = "eBay"
)

var (
	amazonProductRe = regexp.MustCompile(`(?:https?://)?(?:[a-zA-Z0-9\-]+\.)?(?:amazon|amzn)\.(?P<tld>[a-zA-Z.]{2,})/(gp/(?:product|offer-listing|customer-media/product-gallery)/|exec/obidos/tg/detail/-/|o/ASIN/|dp/|(?:[A-Za-z0-9\-]+)/dp/)?(?P<ASIN>[0-9A-Za-z]{10})`)
	amazonDomainRe  = regexp.MustCompile(`^(https://)?(www.)?amazon.(com.tr)?(com.au)?(com.br)?(com)?(co.uk)?(co.jp)?(ae)?(de)?(fr)?(es)?(in)?(nl)?(pl)?(se)?(sg)?(eg)?/`)
	ebayItemRe      = regexp.MustCompile(`ebay\.com/itm/\d+`)
	amazonASINRe    = regexp.MustCompile(`dp/(\w+)`)
)

// ResolveRetailer maps an item URL or domain onto a registered retailer name.
func ResolveRetailer(url string) (string, bool) {
	if isAmazonURL(url) {
		return RetailerAmazon, true
	}
	if ebayItemRe.MatchString(url) {
		return RetailerEBay, true
	}
	return "", false
}

// ExtractProductRef shortens an Amazon URL to its ASIN; other URLs pass through.
func ExtractProductRef(url string) string {
	if m := amazonASINRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}

func isAmazonURL(url string) bool {
	return amazonProductRe.MatchString(url) || amazonDomainRe.MatchString(url)
}
