package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/redlantern/routesim/sim"
)

// severityCodes maps syslog severity names to numeric codes.
var severityCodes = map[string]int{
	"emergency": 0,
	"alert":     1,
	"critical":  2,
	"error":     3,
	"warning":   4,
	"notice":    5,
	"info":      6,
	"debug":     7,
}

// syslogFacility is the user-level facility used for all generated lines.
const syslogFacility = 1

// RouterSyslogAdapter renders router.syslog and bgp.* envelopes as RFC3164
// style lines. Virtual timestamps are formatted as if they were seconds since
// the epoch; consumers only care about relative ordering.
type RouterSyslogAdapter struct{}

// Transform produces one syslog line per envelope it recognizes.
func (RouterSyslogAdapter) Transform(ev sim.Envelope) ([]string, error) {
	switch ev.EventType {
	case "router.syslog":
		return []string{formatSyslog(ev, attrString(ev, "severity", "notice"), attrString(ev, "message", ""))}, nil
	case "bgp.announce", "bgp.update":
		msg := fmt.Sprintf("BGP: UPDATE %s origin AS%v path %s",
			attrString(ev, "prefix", "?"), ev.Attributes["origin_as"], pathString(ev))
		return []string{formatSyslog(ev, "info", msg)}, nil
	case "bgp.withdraw":
		msg := fmt.Sprintf("BGP: WITHDRAW %s by AS%v",
			attrString(ev, "prefix", "?"), ev.Attributes["withdrawn_by_as"])
		return []string{formatSyslog(ev, "notice", msg)}, nil
	}
	return nil, nil
}

func formatSyslog(ev sim.Envelope, severity, msg string) string {
	code, ok := severityCodes[severity]
	if !ok {
		code = severityCodes["notice"]
	}
	pri := syslogFacility*8 + code
	ts := time.Unix(int64(ev.Timestamp), 0).UTC().Format("Jan 02 15:04:05")
	router := attrString(ev, "router", "R1")
	return fmt.Sprintf("<%d>%s %s %s", pri, ts, router, msg)
}

func attrString(ev sim.Envelope, key, fallback string) string {
	if v, ok := ev.Attributes[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func pathString(ev sim.Envelope) string {
	path, ok := ev.Attributes["as_path"].([]int)
	if !ok {
		return "[]"
	}
	parts := make([]string, len(path))
	for i, as := range path {
		parts[i] = fmt.Sprint(as)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
