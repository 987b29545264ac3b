// pkg/checks/hardening/parse.go

package hardening

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// LineContains reports whether some line of text begins with pattern.
// Matching ignores case, and any run of blanks in pattern matches any run of
// blanks in text. The pattern must be followed by whitespace or the end of the
// line, so "Port 66" does not match "Port 6677" and a commented-out directive
// never matches.
func LineContains(text, pattern string) bool {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return false
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	re := regexp.MustCompile(`(?im)^` + strings.Join(fields, `[ \t]+`) + `(\s|$)`)
	return re.MatchString(text)
}

// chainPolicy returns the default policy of chain from `iptables -S` output, or "" if absent
func chainPolicy(rules, chain string) string {
	scanner := bufio.NewScanner(strings.NewReader(rules))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 3 && fields[0] == "-P" && fields[1] == chain {
			return fields[2]
		}
	}
	return ""
}

// acceptRule returns the first `iptables -S` rule in any chain that accepts traffic to port
func acceptRule(rules string, port int) (string, bool) {
	want := strconv.Itoa(port)
	scanner := bufio.NewScanner(strings.NewReader(rules))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "-A" {
			continue
		}

		accepts := false
		matchesPort := false
		for i := 0; i < len(fields)-1; i++ {
			// "! --dport N" matches every port but N
			negated := i > 0 && fields[i-1] == "!"
			switch fields[i] {
			case "-j":
				accepts = fields[i+1] == "ACCEPT"
			case "--dport":
				if !negated {
					matchesPort = matchesPort || portInRange(fields[i+1], want)
				}
			case "--dports":
				if negated {
					continue
				}
				for _, p := range strings.Split(fields[i+1], ",") {
					matchesPort = matchesPort || portInRange(p, want)
				}
			}
		}
		if accepts && matchesPort {
			return line, true
		}
	}
	return "", false
}

// portInRange matches a single port or an iptables "lo:hi" range
func portInRange(field, port string) bool {
	lo, hi, isRange := strings.Cut(field, ":")
	if !isRange {
		return field == port
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	l, err1 := strconv.Atoi(lo)
	h, err2 := strconv.Atoi(hi)
	return err1 == nil && err2 == nil && l <= p && p <= h
}

var bannedPattern = regexp.MustCompile(`(?m)Currently banned:\s*(\d+)`)

// bannedCount extracts the "Currently banned" figure from `fail2ban-client status <jail>`
func bannedCount(status string) (int, bool) {
	m := bannedPattern.FindStringSubmatch(status)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// sysctlValue normalizes `sysctl -n` output
func sysctlValue(output string) string {
	return strings.Join(strings.Fields(output), " ")
}
