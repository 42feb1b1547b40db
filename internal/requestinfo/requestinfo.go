//
//  internal/requestinfo/requestinfo.go
//
//  Per-request visitor metadata: client IP, best-effort geolocation, a
//  User-Agent summary, and the primary Accept-Language tag.  Enquiry
//  handlers copy these onto contact messages and booking requests so
//  staff can see where a lead came from.
//
//  Dependencies
//  • github.com/avct/uasurfer          (through internal/ua)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Info is inert and safe to log or JSON-encode.
type Info struct {
	IP      string  `json:"ip"`
	Country string  `json:"country,omitempty"` // ISO code, "" when unknown
	City    string  `json:"city,omitempty"`
	Agent   ua.Info `json:"agent"`
	RawUA   string  `json:"-"`
	Lang    string  `json:"lang,omitempty"`
}

//
//  -----------------------------
//  GeoLite2 handle
//  -----------------------------
//

var (
	geoMu     sync.RWMutex
	geoReader *geoip2.Reader
)

// InitGeo opens the GeoLite2-City database.  An empty path leaves
// geolocation disabled; a bad path is reported, not fatal.
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoMu.Lock()
	old := geoReader
	geoReader = r
	geoMu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// CloseGeo releases the reader opened by InitGeo.
func CloseGeo() error {
	geoMu.Lock()
	defer geoMu.Unlock()
	if geoReader == nil {
		return nil
	}
	err := geoReader.Close()
	geoReader = nil
	return err
}

// lookupGeo returns the ISO country and English city name for ip.
func lookupGeo(ip net.IP) (country, city string) {
	geoMu.RLock()
	defer geoMu.RUnlock()
	if geoReader == nil || ip == nil {
		return "", ""
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return "", ""
	}
	return rec.Country.IsoCode, rec.City.Names["en"]
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{}

// WithInfo stores info on ctx.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// FromContext returns the value stored by Enrich, or an empty Info when
// the middleware has not run.  It never returns nil.
func FromContext(ctx context.Context) *Info {
	if v, ok := ctx.Value(ctxKey{}).(*Info); ok && v != nil {
		return v
	}
	return &Info{}
}

// primaryLang extracts the first language tag before any ";q=" rule.
func primaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
