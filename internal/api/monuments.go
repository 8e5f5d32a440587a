package api

import (
	"net/http"
	"strings"

	"rutasonora/internal/monuments"
	"rutasonora/internal/navigation"
	"rutasonora/models"
	"rutasonora/pkg/wikipedia"
)

// card is one monument as shown to the user.
type card struct {
	Title     string            `json:"title"`
	Extract   string            `json:"extract"`
	Thumbnail string            `json:"thumbnail,omitempty"`
	Failed    bool              `json:"failed,omitempty"`
	Intent    navigation.Intent `json:"intent"`
}

func newCard(it wikipedia.SummaryItem) card {
	extract := strings.TrimSpace(it.Extract)
	if extract == "" {
		extract = monuments.NoDescription
	}
	return card{
		Title:     it.Title,
		Extract:   extract,
		Thumbnail: it.Thumbnail,
		Failed:    it.Failed(),
		Intent:    navigation.NewIntent(navigation.ToMonument(it.Title), extract),
	}
}

type listingResponse struct {
	Location   models.Location `json:"location"`
	Top        *card           `json:"top,omitempty"`
	Matched    bool            `json:"matched"`
	Items      []card          `json:"items"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Notice     string          `json:"notice,omitempty"`
}

func newListingResponse(l monuments.Listing, index int) listingResponse {
	page := l.Page(index)
	resp := listingResponse{
		Location:   l.Location,
		Matched:    l.Matched,
		Items:      make([]card, 0, len(page.Items)),
		Page:       page.Index,
		TotalPages: page.TotalPages,
		Notice:     l.Notice,
	}
	if l.Top != nil {
		top := newCard(*l.Top)
		resp.Top = &top
	}
	for _, it := range page.Items {
		resp.Items = append(resp.Items, newCard(it))
	}
	return resp
}

// listMonuments runs one search per request. A newer search from the same
// client cancels this one, which then answers 409.
func (s *Server) listMonuments(w http.ResponseWriter, r *http.Request) {
	req, err := geoRequest(r)
	if err != nil {
		writeError(w, err, monuments.NoticeWikipediaDown)
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	ctx, tok := s.tracker.Begin(r.Context(), clientKey(r))
	defer tok.Done()

	listing, err := s.deps.Listings.Nearby(ctx, req, name)
	if err != nil {
		writeError(w, err, monuments.NoticeWikipediaDown)
		return
	}

	var resp listingResponse
	if !tok.Commit(func() { resp = newListingResponse(listing, pageIndex(r)) }) {
		writeMessage(w, http.StatusConflict, msgSuperseded)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
