package overpass

import (
	"fmt"
	"strings"

	"rutasonora/models"
)

// queryTimeoutSeconds is the server-side budget embedded in the query header.
const queryTimeoutSeconds = 25

// BuildQuery renders a single union query covering every category for each of
// its element kinds within radiusMeters of coord. Extended features are
// returned with their centre point (`out center`).
func BuildQuery(coord models.Coordinates, radiusMeters int, categories []Category) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radiusMeters, coord.LatString(), coord.LonString())

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", queryTimeoutSeconds)
	for _, cat := range categories {
		for _, kind := range cat.kinds() {
			fmt.Fprintf(&b, "  %s[%q=%q]%s;\n", kind, cat.Key, cat.Value, around)
		}
	}
	b.WriteString(");\nout center;")
	return b.String()
}
