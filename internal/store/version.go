package store

import (
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

// CompareVersions compares dotted numeric versions such as "24.0.16410.18056".
// Missing components count as zero, so "1.0" equals "1.0.0.0". Versions that
// do not parse fall back to a component-wise compare where components that
// are not numeric sort lexically after all numeric ones.
func CompareVersions(a, b string) int {
	va, errA := version.NewVersion(strings.TrimSpace(a))
	vb, errB := version.NewVersion(strings.TrimSpace(b))
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareComponents(a, b)
}

func compareComponents(a, b string) int {
	pa := strings.Split(strings.TrimSpace(a), ".")
	pb := strings.Split(strings.TrimSpace(b), ".")
	n := max(len(pa), len(pb))
	for i := 0; i < n; i++ {
		ca, cb := component(pa, i), component(pb, i)
		if c := compareComponent(ca, cb); c != 0 {
			return c
		}
	}
	return 0
}

func component(parts []string, i int) string {
	if i < len(parts) && parts[i] != "" {
		return parts[i]
	}
	return "0"
}

func compareComponent(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
