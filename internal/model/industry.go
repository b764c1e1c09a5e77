package model

// Industry is one of the fixed business-sector labels a company belongs to.
type Industry string

const (
	IndustryFintech       Industry = "Fintech"
	IndustryInternet      Industry = "Internet software & services"
	IndustryECommerce     Industry = "E-commerce & direct-to-consumer"
	IndustryAI            Industry = "Artificial intelligence"
	IndustryHealth        Industry = "Health"
	IndustrySupplyChain   Industry = "Supply chain, logistics, & delivery"
	IndustryCybersecurity Industry = "Cybersecurity"
	IndustryData          Industry = "Data management & analytics"
	IndustryMobile        Industry = "Mobile & telecommunications"
	IndustryHardware      Industry = "Hardware"
	IndustryAuto          Industry = "Auto & transportation"
	IndustryEdtech        Industry = "Edtech"
	IndustryConsumer      Industry = "Consumer & retail"
	IndustryTravel        Industry = "Travel"
	IndustryOther         Industry = "Other"
)

// industryOrder is the canonical ordering used for stacking, legends,
// cross-tab columns and tie-breaks.
var industryOrder = []Industry{
	IndustryFintech,
	IndustryInternet,
	IndustryECommerce,
	IndustryAI,
	IndustryHealth,
	IndustrySupplyChain,
	IndustryCybersecurity,
	IndustryData,
	IndustryMobile,
	IndustryHardware,
	IndustryAuto,
	IndustryEdtech,
	IndustryConsumer,
	IndustryTravel,
	IndustryOther,
}

var industryColours = map[Industry]string{
	IndustryFintech:       "#e15b97",
	IndustryInternet:      "#83d5af",
	IndustryECommerce:     "#e8825a",
	IndustryAI:            "#718fcc",
	IndustryHealth:        "#d5ae68",
	IndustrySupplyChain:   "#7f4a88",
	IndustryCybersecurity: "#6d8a42",
	IndustryData:          "#cba1d5",
	IndustryMobile:        "#8f5441",
	IndustryHardware:      "#7cb3cb",
	IndustryAuto:          "#7a7475",
	IndustryEdtech:        "#d3c4a8",
	IndustryConsumer:      "#c17e7f",
	IndustryTravel:        "#f1f17f",
	IndustryOther:         "#c5c4c3",
}

var industryIndex = func() map[Industry]int {
	m := make(map[Industry]int, len(industryOrder))
	for i, ind := range industryOrder {
		m[ind] = i
	}
	return m
}()

// Industries returns every industry label in canonical order.
// The returned slice is a copy and may be modified by the caller.
func Industries() []Industry {
	out := make([]Industry, len(industryOrder))
	copy(out, industryOrder)
	return out
}

// String returns the string representation of the industry.
func (i Industry) String() string {
	return string(i)
}

// IsValid reports whether the industry is one of the fixed labels.
func (i Industry) IsValid() bool {
	_, ok := industryIndex[i]
	return ok
}

// Index returns the position of the industry in canonical order, or -1.
func (i Industry) Index() int {
	if idx, ok := industryIndex[i]; ok {
		return idx
	}
	return -1
}

// Colour returns the hex colour assigned to the industry. Unknown labels
// get the colour of IndustryOther.
func (i Industry) Colour() string {
	if c, ok := industryColours[i]; ok {
		return c
	}
	return industryColours[IndustryOther]
}

// CanonicalIndustry maps a raw label onto the fixed set; anything not
// recognised collapses to IndustryOther.
func CanonicalIndustry(label string) Industry {
	ind := Industry(label)
	if ind.IsValid() {
		return ind
	}
	return IndustryOther
}
