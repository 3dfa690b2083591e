// ABOUTME: Maps free-form names ("kitchen", "the bedroom lamp") to LIFX selectors.
// ABOUTME: Exact label/group/location matches win over substring matches.

package lifx

import "strings"

// Resolution is the outcome of resolving a free-form name.
type Resolution struct {
	Selector string   `json:"selector"`
	Matched  []string `json:"matched_labels"`
}

// ResolveSelector maps a free-form name onto a LIFX selector given the
// current device inventory. Precedence: the literal "all", an exact label,
// an exact group name, an exact location name, then substring matches in
// the same order. Matching is case-insensitive. An empty Selector means
// nothing matched.
func ResolveSelector(lights []Light, query string) Resolution {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || q == "all" || q == "everything" || q == "all lights" {
		return Resolution{Selector: "all", Matched: labels(lights)}
	}

	type candidate struct {
		selector string
		matched  []string
	}
	var exactLabel, exactGroup, exactLocation *candidate
	var subLabel, subGroup, subLocation *candidate

	for _, l := range lights {
		label := strings.ToLower(l.Label)
		group := strings.ToLower(l.Group.Name)
		location := strings.ToLower(l.Location.Name)

		switch {
		case label == q && exactLabel == nil:
			exactLabel = &candidate{"label:" + l.Label, []string{l.Label}}
		case group == q && exactGroup == nil:
			exactGroup = &candidate{"group:" + l.Group.Name, groupLabels(lights, l.Group.ID)}
		case location == q && exactLocation == nil:
			exactLocation = &candidate{"location:" + l.Location.Name, locationLabels(lights, l.Location.ID)}
		}
		if exactLabel != nil {
			continue
		}
		switch {
		case strings.Contains(label, q) && subLabel == nil:
			subLabel = &candidate{"label:" + l.Label, []string{l.Label}}
		case strings.Contains(group, q) && subGroup == nil:
			subGroup = &candidate{"group:" + l.Group.Name, groupLabels(lights, l.Group.ID)}
		case strings.Contains(location, q) && subLocation == nil:
			subLocation = &candidate{"location:" + l.Location.Name, locationLabels(lights, l.Location.ID)}
		}
	}

	for _, c := range []*candidate{exactLabel, exactGroup, exactLocation, subLabel, subGroup, subLocation} {
		if c != nil {
			return Resolution{Selector: c.selector, Matched: c.matched}
		}
	}
	return Resolution{}
}

func labels(lights []Light) []string {
	out := make([]string, 0, len(lights))
	for _, l := range lights {
		out = append(out, l.Label)
	}
	return out
}

func groupLabels(lights []Light, groupID string) []string {
	var out []string
	for _, l := range lights {
		if l.Group.ID == groupID {
			out = append(out, l.Label)
		}
	}
	return out
}

func locationLabels(lights []Light, locationID string) []string {
	var out []string
	for _, l := range lights {
		if l.Location.ID == locationID {
			out = append(out, l.Label)
		}
	}
	return out
}
