package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/meridianwealth/authgate/internal/auth/domain"
	"github.com/meridianwealth/authgate/internal/auth/service"
	"github.com/meridianwealth/authgate/pkg/httpx"
)

// Geo headers stamped by the edge proxy. The service never does its own
// geo lookups; it trusts what the edge resolved.
const (
	headerGeoCountry   = "X-Geo-Country"
	headerGeoLatitude  = "X-Geo-Latitude"
	headerGeoLongitude = "X-Geo-Longitude"
)

// ResolveMeta extracts the requester facts from edge metadata once at
// ingestion. The address is normalized via httpx.RealIP; the country falls
// back to the configured default when the edge resolved nothing, so a
// missing header can never fail a request outright.
func ResolveMeta(r *http.Request, fallbackCountry string) service.RequestMeta {
	meta := service.RequestMeta{
		UserAgent: r.UserAgent(),
	}

	if addr, ok := httpx.RealIP(r); ok {
		meta.IP = addr
	}

	meta.Country = strings.ToUpper(strings.TrimSpace(r.Header.Get(headerGeoCountry)))
	if meta.Country == "" {
		meta.Country = fallbackCountry
	}

	lat, latErr := strconv.ParseFloat(r.Header.Get(headerGeoLatitude), 64)
	long, longErr := strconv.ParseFloat(r.Header.Get(headerGeoLongitude), 64)
	if latErr == nil && longErr == nil {
		meta.LatLong = &domain.LatLong{Lat: lat, Long: long}
	}

	return meta
}
