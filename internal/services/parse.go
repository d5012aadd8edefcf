package services

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// triggerEventRE matches the trigger/event reference Zabbix action macros
	// embed into the body, e.g. "triggerid=12&eventid=34". The reference is
	// informational and stays in the displayed text.
	triggerEventRE = regexp.MustCompile(`triggerid=(\d+)&eventid=(\d+)`)

	// itemDirectiveRE matches a graph request for one item, e.g.
	// "zbx;itemid:42". Directives are stripped from the displayed text.
	itemDirectiveRE = regexp.MustCompile(`zbx;itemid:(\d+)`)
)

// alertRef is the compound Zabbix identity of one alert occurrence, used as
// the dedup key for post-vs-update decisions.
type alertRef struct {
	TriggerID int64
	EventID   int64
}

// extractTriggerEvent returns the first trigger/event reference found in
// body, if any.
func extractTriggerEvent(body string) (alertRef, bool) {
	m := triggerEventRE.FindStringSubmatch(body)
	if m == nil {
		return alertRef{}, false
	}
	triggerID, err1 := strconv.ParseInt(m[1], 10, 64)
	eventID, err2 := strconv.ParseInt(m[2], 10, 64)
	if err1 != nil || err2 != nil {
		// Identifiers too large for int64 are treated as absent.
		return alertRef{}, false
	}
	return alertRef{TriggerID: triggerID, EventID: eventID}, true
}

// extractItemDirectives collects every item-image directive in body and
// returns the item ids together with the body text with all directives
// removed. Lines that contained nothing but directives are dropped.
func extractItemDirectives(body string) ([]int64, string) {
	if !itemDirectiveRE.MatchString(body) {
		return nil, body
	}

	var ids []int64
	for _, m := range itemDirectiveRE.FindAllStringSubmatch(body, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !itemDirectiveRE.MatchString(line) {
			out = append(out, line)
			continue
		}
		stripped := strings.TrimRight(itemDirectiveRE.ReplaceAllString(line, ""), " \t")
		if strings.TrimSpace(stripped) == "" {
			continue
		}
		out = append(out, stripped)
	}
	return ids, strings.Join(out, "\n")
}
