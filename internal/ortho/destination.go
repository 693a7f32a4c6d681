package ortho

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DestinationName returns the name a reassembled file is stored under.
// Documents keep their original name. Photos and videos get
// <unixMillis>_<token><ext> so two uploads of the same name never collide.
func DestinationName(category Category, fileName string, now time.Time, token string) string {
	if category.KeepsOriginalName() {
		return fileName
	}
	token = strings.ReplaceAll(token, "-", "")
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), token, filepath.Ext(fileName))
}

// StorageKey returns the vault key <ownerID>/<category>/<name>.
func StorageKey(ownerID string, category Category, name string) string {
	return path.Join(ownerID, string(category), name)
}
