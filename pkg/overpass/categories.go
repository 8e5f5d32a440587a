package overpass

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Kind is the Overpass element type.
type Kind string

const (
	KindNode     Kind = "node"
	KindWay      Kind = "way"
	KindRelation Kind = "relation"
)

// AllKinds is the default set of element kinds queried per category.
var AllKinds = []Kind{KindNode, KindWay, KindRelation}

func (k Kind) Valid() bool {
	return k == KindNode || k == KindWay || k == KindRelation
}

// Category is a tag selector such as historic=monument. Label is the literal
// used as a place name when a matching feature carries no usable name tag.
type Category struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Kinds []Kind `yaml:"kinds"`
}

// Matches reports whether the tags carry this category's key/value pair.
func (c Category) Matches(tags map[string]string) bool {
	return tags[c.Key] == c.Value
}

func (c Category) kinds() []Kind {
	if len(c.Kinds) == 0 {
		return AllKinds
	}
	return c.Kinds
}

type catalogue struct {
	Categories []Category `yaml:"categories"`
}

//go:embed categories.yaml
var defaultCatalogue []byte

// DefaultCategories returns the built-in category set.
func DefaultCategories() []Category {
	cats, err := ParseCategories(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("overpass: embedded categories: %v", err))
	}
	return cats
}

// LoadCategories reads a YAML catalogue from path. An empty path yields the
// built-in set.
func LoadCategories(path string) ([]Category, error) {
	if path == "" {
		return DefaultCategories(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return ParseCategories(data)
}

// ParseCategories decodes a YAML catalogue and validates every entry.
func ParseCategories(data []byte) ([]Category, error) {
	var c catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("categories: catalogue is empty")
	}
	for i, cat := range c.Categories {
		if cat.Key == "" || cat.Value == "" {
			return nil, fmt.Errorf("categories[%d]: key and value are required", i)
		}
		for _, k := range cat.Kinds {
			if !k.Valid() {
				return nil, fmt.Errorf("categories[%d]: unknown kind %q", i, k)
			}
		}
	}
	return c.Categories, nil
}
