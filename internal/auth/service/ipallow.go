package service

import "github.com/meridianwealth/authgate/internal/auth/domain"

// MatchVerifiedIP scans a user's verified locations for an entry matching
// the requester. Both IP and country must match exactly on an entry flagged
// verified; there is no partial or fuzzy matching.
func MatchVerifiedIP(ips []domain.VerifiedIP, ip, country string) (domain.VerifiedIP, bool) {
	for _, v := range ips {
		if v.Verified && v.IP == ip && v.Country == country {
			return v, true
		}
	}
	return domain.VerifiedIP{}, false
}
