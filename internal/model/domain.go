package model

import (
	"fmt"
	"strings"
)

// Domain is a business area inferred from an object name
type Domain string

const (
	DomainSales         Domain = "Sales"
	DomainPurchasing    Domain = "Purchasing"
	DomainFinance       Domain = "Finance"
	DomainInventory     Domain = "Inventory"
	DomainManufacturing Domain = "Manufacturing"
	DomainService       Domain = "Service"
)

// Domains lists every domain in display order
var Domains = []Domain{
	DomainSales,
	DomainPurchasing,
	DomainFinance,
	DomainInventory,
	DomainManufacturing,
	DomainService,
}

// domainKeywords is matched case-insensitively against object names.
// Rows are checked in order and the first hit wins, so "Service Item" is
// Service and not Inventory.
var domainKeywords = []struct {
	domain   Domain
	keywords []string
}{
	{DomainService, []string{"service", "serv.", "fault", "resolution code"}},
	{DomainManufacturing, []string{"production", "prod.", "routing", "work center", "machine center", "capacity", "manufacturing", "mfg.", "bom"}},
	{DomainSales, []string{"sales", "customer", "cust.", "shipment", "blanket sales", "salesperson"}},
	{DomainPurchasing, []string{"purchase", "purch.", "vendor", "vend.", "purch. rcpt.", "requisition"}},
	{DomainFinance, []string{"g/l", "gl ", "general ledger", "gen. journal", "gen. ledger", "bank", "vat", "currency", "payment", "fixed asset", "fa ", "budget", "account", "finance", "dimension"}},
	{DomainInventory, []string{"item", "inventory", "invt.", "location", "warehouse", "whse.", "bin", "stockkeeping", "transfer", "lot no.", "serial no."}},
}

// ParseDomain resolves a domain name case-insensitively
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain: %q", s)
}

// Classify returns the domain for an object name, or "" when no keyword matches
func Classify(name string) Domain {
	lower := strings.ToLower(name)
	for _, row := range domainKeywords {
		for _, kw := range row.keywords {
			if matchKeyword(lower, kw) {
				return row.domain
			}
		}
	}
	return ""
}

// matchKeyword matches kw at a word start so that "bin" does not hit "combine"
func matchKeyword(name, kw string) bool {
	for start := 0; start < len(name); {
		i := strings.Index(name[start:], kw)
		if i < 0 {
			return false
		}
		pos := start + i
		if pos == 0 || !isWordByte(name[pos-1]) {
			return true
		}
		start = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
