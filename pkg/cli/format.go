package cli

// displayDate renders the date part of an RFC3339 timestamp. Rows
// written by other tools may carry a short or empty timestamp; those are
// shown as-is instead of panicking on the slice.
func displayDate(ts string) string {
	if len(ts) < 10 {
		return ts
	}

	return ts[:10]
}
