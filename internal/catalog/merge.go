package catalog

// Merge folds an incoming sighting into an existing entry under the
// fill-only-if-missing policy: the first writer of a non-nil field wins, later
// sightings only fill gaps. Returns the merged entry and whether anything
// changed.
func Merge(existing, incoming Entry) (Entry, bool) {
	changed := false
	fill := func(dst **string, src *string) {
		if *dst == nil && src != nil {
			*dst = src
			changed = true
		}
	}
	fillID := func(dst **int64, src *int64) {
		if *dst == nil && src != nil {
			*dst = src
			changed = true
		}
	}

	fill(&existing.Name, incoming.Name)
	fill(&existing.Brand, incoming.Brand)
	fill(&existing.Material, incoming.Material)
	fill(&existing.Category, incoming.Category)
	fill(&existing.SearchText, incoming.SearchText)
	fillID(&existing.SupplierID, incoming.SupplierID)
	fillID(&existing.SourceFileID, incoming.SourceFileID)
	fillID(&existing.SourceRowID, incoming.SourceRowID)

	return existing, changed
}
