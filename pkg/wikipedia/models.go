package wikipedia

// GeoSearchResponse is the body of an action=query&list=geosearch call.
type GeoSearchResponse struct {
	Query GeoSearchQuery `json:"query"`
}

type GeoSearchQuery struct {
	GeoSearch []GeoPage `json:"geosearch"`
}

// GeoPage is one geotagged article near the searched point.
type GeoPage struct {
	PageID int     `json:"pageid"`
	Title  string  `json:"title"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Dist   float64 `json:"dist"`
}

// SummaryResponse is the subset of the REST page summary we use.
type SummaryResponse struct {
	Title     string     `json:"title"`
	Extract   string     `json:"extract"`
	Thumbnail *Thumbnail `json:"thumbnail"`
}

type Thumbnail struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SummaryItem is what the listing shows for one article. Thumbnail is empty
// when the article has none. Err is set on placeholders for failed fetches.
type SummaryItem struct {
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Err       error  `json:"-"`
}

// Failed reports whether the item is a placeholder for a failed fetch.
func (s SummaryItem) Failed() bool { return s.Err != nil }
