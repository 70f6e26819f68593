package domain

// EstimateDelay returns the advisory processing time in days for a case of
// itemCount items handled by office: ceil((1 + 0.5*n) * factor), at least 1.
// Factors are kept in tenths so the ceiling is exact.
func EstimateDelay(itemCount int, office Office) int {
	if itemCount < 0 {
		itemCount = 0
	}
	// (1 + n/2) * f/10 = (2+n)*f / 20
	scaled := (2 + itemCount) * office.factorTenths()
	days := (scaled + 19) / 20
	if days < 1 {
		return 1
	}
	return days
}
