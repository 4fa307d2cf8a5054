package security

import (
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"

	"ecotrack/internal/log"
	"ecotrack/internal/observability"
)

const (
	maxURLLength  = 2048
	maxProxyHops  = 6
	reasonMethod  = "debug method"
	reasonLength  = "oversized url"
	reasonPattern = "scan pattern"
	reasonAgent   = "scanner user agent"
	reasonHops    = "forwarding chain"
)

var (
	scanPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}

	scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "scanner"}

	// Never served; requests using them are rejected outright.
	debugMethods = map[string]bool{"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true}

	privateNetworks = []netip.Prefix{
		netip.MustParsePrefix("127.0.0.0/8"),
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("172.16.0.0/12"),
		netip.MustParsePrefix("192.168.0.0/16"),
		netip.MustParsePrefix("::1/128"),
	}
)

// Detector flags requests that look like vulnerability scans. Only debug methods are
// blocked; everything else is logged, counted and let through.
type Detector struct {
	trusted []netip.Prefix
	logger  *log.Logger

	suspicious atomic.Int64
	blocked    atomic.Int64
}

// DetectionStats counts flagged and rejected requests.
type DetectionStats struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// NewDetector trusts loopback and private networks to set forwarding headers.
func NewDetector(logger *log.Logger) *Detector {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Detector{
		trusted: append([]netip.Prefix(nil), privateNetworks...),
		logger:  logger.WithComponent(log.ComponentSecurity),
	}
}

func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	return d.inspect(r) != ""
}

// inspect returns why r looks like a scan, or "" when it does not.
func (d *Detector) inspect(r *http.Request) string {
	reason := classify(r)
	if reason != "" {
		d.suspicious.Add(1)
		observability.RecordSuspiciousRequest()
	}
	return reason
}

func classify(r *http.Request) string {
	if debugMethods[r.Method] {
		return reasonMethod
	}
	if len(r.URL.String()) > maxURLLength {
		return reasonLength
	}

	path := strings.ToLower(r.URL.Path)
	query := r.URL.RawQuery
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	query = strings.ToLower(query)
	for _, p := range scanPatterns {
		if strings.Contains(path, p) || strings.Contains(query, p) {
			return reasonPattern
		}
	}

	agent := strings.ToLower(r.UserAgent())
	for _, a := range scannerAgents {
		if strings.Contains(agent, a) {
			return reasonAgent
		}
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") >= maxProxyHops {
		return reasonHops
	}
	return ""
}

// ExtractClientIP honours X-Forwarded-For and X-Real-IP only when the
// direct peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.isTrusted(peer.Unmap()) {
		return host
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	return host
}

func (d *Detector) isTrusted(addr netip.Addr) bool {
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// AddTrustedProxy trusts forwarding headers from peers in cidr.
func (d *Detector) AddTrustedProxy(cidr string) error {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return err
	}
	d.trusted = append(d.trusted, p.Masked())
	return nil
}

func (d *Detector) Stats() DetectionStats {
	return DetectionStats{
		SuspiciousRequests: d.suspicious.Load(),
		BlockedRequests:    d.blocked.Load(),
	}
}

func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.inspect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		d.logger.WarnContext(r.Context(), "Suspicious request detected",
			"reason", reason,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, d.ExtractClientIP(r),
			log.FieldUserAgent, r.UserAgent())
		if reason == reasonMethod {
			d.blocked.Add(1)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
