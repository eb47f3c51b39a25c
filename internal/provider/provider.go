// Package provider maps an MX host list to a canonical mailbox
// provider tag (C2 of the verification engine).
package provider

import "strings"

// Tag is a canonical provider identifier, or "other" when unknown.
type Tag string

const (
	Google     Tag = "google"
	Microsoft  Tag = "microsoft"
	IONOS      Tag = "ionos"
	Barracuda  Tag = "barracuda"
	Proofpoint Tag = "proofpoint"
	Mimecast   Tag = "mimecast"
	OVH        Tag = "ovh"
	Zoho       Tag = "zoho"
	Yahoo      Tag = "yahoo"
	ICloud     Tag = "icloud"
	Other      Tag = "other"
)

type rule struct {
	tag      Tag
	patterns []string
}

// rules is evaluated in order; the first host (in MX preference order)
// matching any pattern of a rule wins.
var rules = []rule{
	{Google, []string{"google.com", "googlemail.com", "gmail-smtp-in", "aspmx.l.google"}},
	{Microsoft, []string{"outlook.com", "protection.outlook", "hotmail", "microsoft.com"}},
	{IONOS, []string{"ionos."}},
	{Barracuda, []string{"barracudanetworks.com", "ess.barracuda"}},
	{Proofpoint, []string{"pphosted.com", "proofpoint.com"}},
	{Mimecast, []string{"mimecast.com"}},
	{OVH, []string{"ovh.net", "ovh.com"}},
	{Zoho, []string{"zoho.com", "zoho.eu"}},
	{Yahoo, []string{"yahoodns.net", "yahoo.com"}},
	{ICloud, []string{"icloud.com", "apple.com"}},
}

// Detect returns the first provider tag whose pattern appears as a
// substring of some host, walked in MX preference order. Pure
// function: the same mxHosts slice always yields the same tag.
func Detect(mxHosts []string) Tag {
	for _, host := range mxHosts {
		h := strings.ToLower(host)
		for _, r := range rules {
			for _, pat := range r.patterns {
				if strings.Contains(h, pat) {
					return r.tag
				}
			}
		}
	}
	return Other
}

// Boosts reports whether a provider tag contributes the scorer's
// "well-known provider" bonus.
func Boosts(t Tag) bool {
	switch t {
	case Google, Microsoft, ICloud, Zoho:
		return true
	default:
		return false
	}
}
