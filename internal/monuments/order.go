// Package monuments builds the nearby monument listing: ordering around a
// requested name, pagination, and cancellation of superseded searches.
package monuments

import (
	"golang.org/x/text/cases"

	"rutasonora/pkg/wikipedia"
)

// OrderedList is a fetched list, possibly with the requested item moved to
// the front. Featured is true only when that move happened.
type OrderedList struct {
	Items    []wikipedia.SummaryItem
	Featured bool
}

// Order promotes the first item whose title equals requested under Unicode
// case folding to index 0, leaving every other item in fetch order. An empty
// requested name leaves the list as is. items is never modified.
func Order(items []wikipedia.SummaryItem, requested string) OrderedList {
	out := make([]wikipedia.SummaryItem, len(items))
	copy(out, items)
	if requested == "" {
		return OrderedList{Items: out}
	}

	fold := cases.Fold()
	want := fold.String(requested)
	for i, item := range out {
		if fold.String(item.Title) != want {
			continue
		}
		sel := out[i]
		copy(out[1:i+1], out[:i])
		out[0] = sel
		return OrderedList{Items: out, Featured: true}
	}
	return OrderedList{Items: out}
}
