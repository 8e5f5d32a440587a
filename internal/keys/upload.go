package keys

import (
	"fmt"
	"path"
	"strings"
	"time"
)

const uploadsPrefix = "uploads"

// sanitizeKey keeps the base name of fileName, replaces spaces with hyphens
// and drops characters that are awkward in object keys.
func sanitizeKey(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, `\`, "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`?#%*:|"<>`, r):
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}

// Upload returns the object key for a file uploaded by owner at the given
// time: uploads/<owner>_<unix ms>_<file name>.
func Upload(ownerID string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%s_%d_%s", uploadsPrefix, ownerID, at.UnixMilli(), sanitizeKey(fileName))
}

// OwnsUpload reports whether key was produced by Upload for ownerID.
func OwnsUpload(key, ownerID string) bool {
	return ownerID != "" && strings.HasPrefix(key, uploadsPrefix+"/"+ownerID+"_")
}
