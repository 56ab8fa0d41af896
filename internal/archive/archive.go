package archive

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MimeLyc/doctrans/pkg/file"
)

// objectKey builds "<yyyy>/<mm>/<dd>/<short-id>_<name>" so repeated names never collide.
func objectKey(now time.Time, name string) string {
	name = file.SanitizeName(name)
	if name == "" {
		name = "document"
	}
	shortID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return path.Join(now.UTC().Format("2006/01/02"), shortID+"_"+name)
}
