package processors

// FairValueLookup provides the fair market value of a scheme on the
// grandfathering cutover date. Implementations return 0 when no value is
// known; callers must treat 0 as "no data", never as a real price.
type FairValueLookup interface {
	FairValueAtCutover(isin string) float64
}
