package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"rutasonora/models"
)

// GenericName is used when neither a name tag nor a category label applies.
const GenericName = "Sin nombre"

// nameTags lists the tags consulted for a place name, highest priority first.
var nameTags = []string{"name", "addr:place", "alt_name", "official_name"}

// FeatureRef identifies an element independently of its content.
type FeatureRef struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func (r FeatureRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// ParseFeatureRef is the inverse of FeatureRef.String.
func ParseFeatureRef(kind, id string) (FeatureRef, error) {
	k := Kind(kind)
	if !k.Valid() {
		return FeatureRef{}, fmt.Errorf("unknown element kind %q", kind)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return FeatureRef{}, fmt.Errorf("invalid element id %q: %w", id, err)
	}
	return FeatureRef{Kind: k, ID: n}, nil
}

// RawFeature is one named point of interest returned by a query.
type RawFeature struct {
	Kind     Kind                `json:"kind"`
	ID       int64               `json:"id"`
	Position *models.Coordinates `json:"position"`
	Tags     map[string]string   `json:"tags,omitempty"`
	Name     string              `json:"name"`
	Category string              `json:"category,omitempty"`
}

func (f RawFeature) Ref() FeatureRef {
	return FeatureRef{Kind: f.Kind, ID: f.ID}
}

// PlaceName derives exactly one display name from tags: the first non-blank
// name tag, then the label of the first matching category, then GenericName.
func PlaceName(tags map[string]string, categories []Category) string {
	for _, key := range nameTags {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	if cat, ok := matchCategory(tags, categories); ok && cat.Label != "" {
		return cat.Label
	}
	return GenericName
}

func matchCategory(tags map[string]string, categories []Category) (Category, bool) {
	for _, cat := range categories {
		if cat.Matches(tags) {
			return cat, true
		}
	}
	return Category{}, false
}

// response mirrors the Overpass JSON output.
type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   Kind              `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *point            `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type point struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// position returns the direct coordinates of a node or the centre of an
// extended element. Elements with neither are reported as absent.
func (e element) position() (*models.Coordinates, bool) {
	if e.Type == KindNode || (e.Lat != nil && e.Lon != nil) {
		if e.Lat == nil || e.Lon == nil {
			return nil, false
		}
		return &models.Coordinates{Lat: *e.Lat, Lon: *e.Lon}, true
	}
	if e.Center == nil || e.Center.Lat == nil || e.Center.Lon == nil {
		return nil, false
	}
	return &models.Coordinates{Lat: *e.Center.Lat, Lon: *e.Center.Lon}, true
}

// toFeatures maps elements in response order, dropping elements without a
// position and repeated (kind, id) pairs.
func toFeatures(elements []element, categories []Category) []RawFeature {
	seen := make(map[FeatureRef]struct{}, len(elements))
	features := make([]RawFeature, 0, len(elements))
	for _, el := range elements {
		pos, ok := el.position()
		if !ok {
			continue
		}
		ref := FeatureRef{Kind: el.Type, ID: el.ID}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}

		f := RawFeature{
			Kind:     el.Type,
			ID:       el.ID,
			Position: pos,
			Tags:     el.Tags,
			Name:     PlaceName(el.Tags, categories),
		}
		if cat, ok := matchCategory(el.Tags, categories); ok {
			f.Category = cat.Key + "=" + cat.Value
		}
		features = append(features, f)
	}
	return features
}
