package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewImageFilename returns a unique name of the form image_<8 hex>_<unix seconds>.png.
func NewImageFilename(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("image_%s_%d.png", id[:8], now.Unix())
}
