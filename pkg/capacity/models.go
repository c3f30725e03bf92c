package capacity

import (
	"fmt"
	"os"
	"time"
)

// UsageSortKey is the sort key of every usage row.
const UsageSortKey = "calls"

// UsageEntry tracks calls made by a service in one window.
//
// Storage key shape:
//   - PK: {service}#{window_start_unix}
//   - SK: calls
type UsageEntry struct {
	PK string `theorydb:"pk" json:"pk"`
	SK string `theorydb:"sk" json:"sk"`

	Service     string `json:"service"`
	WindowStart int64  `json:"window_start"`
	WindowID    string `json:"window_id"`

	Count int64 `json:"count"`

	TTL int64 `theorydb:"ttl" json:"ttl"`

	CreatedAt time.Time `theorydb:"created_at" json:"created_at"`
	UpdatedAt time.Time `theorydb:"updated_at" json:"updated_at"`
}

func (u *UsageEntry) SetKeys() {
	u.PK = fmt.Sprintf("%s#%d", u.Service, u.WindowStart)
	u.SK = UsageSortKey
}

func (UsageEntry) TableName() string {
	if name := os.Getenv("BULKQ_CAPACITY_TABLE_NAME"); name != "" {
		return name
	}
	if name := os.Getenv("CAPACITY_TABLE_NAME"); name != "" {
		return name
	}
	return "bulk-capacity"
}
