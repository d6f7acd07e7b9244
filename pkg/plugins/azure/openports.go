package azure

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aquasecurity/cloudaudit/pkg/result"
	"k8s.io/apimachinery/pkg/util/sets"
)

type NetworkSecurityGroup struct {
	Resource
	Properties struct {
		SecurityRules []SecurityRule `json:"securityRules"`
	} `json:"properties"`
}

type SecurityRule struct {
	Name       string `json:"name"`
	Properties struct {
		Access                string   `json:"access"`
		Direction             string   `json:"direction"`
		Protocol              string   `json:"protocol"`
		SourceAddressPrefix   string   `json:"sourceAddressPrefix,omitempty"`
		SourceAddressPrefixes []string `json:"sourceAddressPrefixes,omitempty"`
		DestinationPortRange  string   `json:"destinationPortRange,omitempty"`
		DestinationPortRanges []string `json:"destinationPortRanges,omitempty"`
	} `json:"properties"`
}

// Ports maps a protocol, e.g. "TCP", to the port numbers of a service.
type Ports map[string][]int

var publicSources = sets.New("*", "0.0.0.0", "0.0.0.0/0", "::/0", "internet", "any")

// FindOpenPorts reports one finding per security group: FAIL naming each
// opening if an inbound rule allows traffic from any source to one of ports,
// OK otherwise. A location without groups gets a single OK.
func FindOpenPorts(results *result.Sink, groups []NetworkSecurityGroup, ports Ports, service, location string) {
	if len(groups) == 0 {
		results.OK(fmt.Sprintf("No public open ports found for %s", service), location, "")
		return
	}
	for _, group := range groups {
		var openings []string
		for _, rule := range group.Properties.SecurityRules {
			if !rule.allowsPublicInbound() {
				continue
			}
			for _, protocol := range sortedProtocols(ports) {
				if !rule.matchesProtocol(protocol) {
					continue
				}
				for _, port := range ports[protocol] {
					if rule.coversPort(port) {
						openings = append(openings, fmt.Sprintf("%s:%d (rule %s)", strings.ToUpper(protocol), port, rule.Name))
					}
				}
			}
		}
		if len(openings) == 0 {
			results.OK(fmt.Sprintf("Security group %s does not have %s open to the public", group.DisplayName(), service), location, group.ID)
			continue
		}
		results.Fail(fmt.Sprintf("Security group %s has %s open to the public on %s", group.DisplayName(), service, strings.Join(openings, ", ")), location, group.ID)
	}
}

func sortedProtocols(ports Ports) []string {
	protocols := make([]string, 0, len(ports))
	for p := range ports {
		protocols = append(protocols, p)
	}
	sort.Strings(protocols)
	return protocols
}

func (r SecurityRule) allowsPublicInbound() bool {
	p := r.Properties
	if !strings.EqualFold(p.Access, "Allow") || !strings.EqualFold(p.Direction, "Inbound") {
		return false
	}
	if publicSources.Has(strings.ToLower(p.SourceAddressPrefix)) {
		return true
	}
	for _, prefix := range p.SourceAddressPrefixes {
		if publicSources.Has(strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (r SecurityRule) matchesProtocol(protocol string) bool {
	return r.Properties.Protocol == "*" || strings.EqualFold(r.Properties.Protocol, protocol)
}

func (r SecurityRule) coversPort(port int) bool {
	ranges := r.Properties.DestinationPortRanges
	if r.Properties.DestinationPortRange != "" {
		ranges = append([]string{r.Properties.DestinationPortRange}, ranges...)
	}
	for _, portRange := range ranges {
		if portRangeCovers(portRange, port) {
			return true
		}
	}
	return false
}

// portRangeCovers accepts "*", a single port or an inclusive "from-to" range.
func portRangeCovers(portRange string, port int) bool {
	portRange = strings.TrimSpace(portRange)
	if portRange == "*" {
		return true
	}
	from, to, isRange := strings.Cut(portRange, "-")
	if !isRange {
		to = from
	}
	low, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return false
	}
	high, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return false
	}
	return low <= port && port <= high
}
