package workflow

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Schedule is a workflow's schedule block.
type Schedule struct {
	// Kind is the schedule form: cron, daily, hourly, weekly, minutes_interval.
	Kind string
	// Expression is the raw schedule expression.
	Expression string
	// Timezone is the declared timezone, if any.
	Timezone string
	// Valid reports whether a cron expression parsed cleanly. Non-cron
	// forms are not validated and are always true.
	Valid bool
}

// String renders the schedule for display.
func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	out := s.Expression
	if s.Kind != "cron" {
		out = fmt.Sprintf("%s %s", s.Kind, s.Expression)
	}
	if s.Timezone != "" {
		out += " (" + s.Timezone + ")"
	}
	return out
}

// Schedule forms, checked in order. The ">" suffixed forms are the
// common spelling; bare forms appear in older documents.
var scheduleKeys = []string{
	"cron>", "cron",
	"daily>", "daily",
	"hourly>", "hourly",
	"weekly>", "weekly",
	"minutes_interval>", "minutes_interval",
}

// parseSchedule extracts the schedule from a schedule block mapping.
// Returns nil when the block is not a mapping or carries no known form.
func parseSchedule(n *yaml.Node) *Schedule {
	if n.Kind != yaml.MappingNode {
		return nil
	}

	fields := make(map[string]string)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i+1].Kind == yaml.ScalarNode {
			fields[n.Content[i].Value] = n.Content[i+1].Value
		}
	}

	for _, key := range scheduleKeys {
		expr, ok := fields[key]
		if !ok {
			continue
		}
		s := &Schedule{
			Kind:       strings.TrimSuffix(key, ">"),
			Expression: expr,
			Valid:      true,
		}
		if tz, ok := fields["timezone"]; ok {
			s.Timezone = tz
		} else if tz, ok := fields["time_zone"]; ok {
			s.Timezone = tz
		}
		if s.Kind == "cron" {
			_, err := cron.ParseStandard(expr)
			s.Valid = err == nil
		}
		return s
	}
	return nil
}
