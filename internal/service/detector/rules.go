package detector

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/coachpulse/engage-api/internal/model"
)

// window is the evaluation context shared by all rule predicates: the
// client, their ordered activity events and the reference time. lastSeen
// is set only when events is empty and an older event exists on record.
type window struct {
	client   *model.Client
	events   []*model.ActivityEvent
	now      time.Time
	lastSeen time.Time
	cfg      Config
}

// finding is a fired predicate before it becomes a persisted trigger.
type finding struct {
	severity model.TriggerSeverity
	reason   string
	action   string
}

type rule struct {
	name        string
	triggerType model.TriggerType
	eval        func(w *window) (*finding, error)
}

func allRules() []rule {
	return []rule{
		{name: "inactivity", triggerType: model.TriggerTypeInactivity, eval: evalInactivity},
		{name: "missed_log", triggerType: model.TriggerTypeMissedLog, eval: evalMissedLog},
		{name: "pattern_deviation", triggerType: model.TriggerTypePatternDeviation, eval: evalPatternDeviation},
		{name: "goal_at_risk", triggerType: model.TriggerTypeGoalAtRisk, eval: evalGoalAtRisk},
		{name: "engagement_drop", triggerType: model.TriggerTypeEngagementDrop, eval: evalEngagementDrop},
	}
}

// evalInactivity fires when no event of any type landed within the
// configured threshold during the client's expected active hours. Severity
// bands are fixed: below 6h low, 6-24h medium, beyond 24h high.
func evalInactivity(w *window) (*finding, error) {
	if !withinActiveHours(w.client, w.now) {
		return nil, nil
	}

	last := w.cfg.Baseline
	for _, ev := range w.events {
		if gap := w.now.Sub(ev.Timestamp); gap < last {
			last = gap
		}
	}
	if len(w.events) == 0 && !w.lastSeen.IsZero() {
		// The true gap is known even though the window is empty.
		last = w.now.Sub(w.lastSeen)
	}
	if last <= w.cfg.InactivityThreshold {
		return nil, nil
	}

	severity := model.SeverityLow
	switch {
	case last > 24*time.Hour:
		severity = model.SeverityHigh
	case last >= 6*time.Hour:
		severity = model.SeverityMedium
	}

	return &finding{
		severity: severity,
		reason:   fmt.Sprintf("no activity for %s", last.Round(time.Minute)),
		action:   "Check in with the client and ask how their day is going",
	}, nil
}

func withinActiveHours(client *model.Client, now time.Time) bool {
	if client == nil || client.ActiveHoursStart == "" || client.ActiveHoursEnd == "" {
		return true
	}
	start, err := model.ParseClock(client.ActiveHoursStart)
	if err != nil {
		return true
	}
	end, err := model.ParseClock(client.ActiveHoursEnd)
	if err != nil {
		return true
	}
	minute := now.Hour()*60 + now.Minute()
	if start == end {
		return true
	}
	if start < end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// evalMissedLog fires per expected log category (nutrition, workout) that
// has no log event in the current period while a missed_task event exists
// for it.
func evalMissedLog(w *window) (*finding, error) {
	expected := []model.ActivityCategory{model.CategoryNutrition, model.CategoryWorkout}
	periodStart := w.now.Add(-w.cfg.Period)

	var missed []model.ActivityCategory
	for _, cat := range expected {
		var logged, taskMissed bool
		for _, ev := range w.events {
			if ev.Category != cat || ev.Timestamp.Before(periodStart) {
				continue
			}
			switch ev.Type {
			case model.ActivityTypeLog:
				logged = true
			case model.ActivityTypeMissedTask:
				taskMissed = true
			}
		}
		if !logged && taskMissed {
			missed = append(missed, cat)
		}
	}
	if len(missed) == 0 {
		return nil, nil
	}

	severity := model.SeverityLow
	if len(missed) > 1 {
		severity = model.SeverityMedium
	}
	return &finding{
		severity: severity,
		reason:   fmt.Sprintf("expected %s not logged this period despite scheduled tasks", joinCategories(missed)),
		action:   "Remind the client about the missed log and offer to adjust the plan",
	}, nil
}

func joinCategories(cats []model.ActivityCategory) string {
	out := ""
	for i, c := range cats {
		if i > 0 {
			out += ", "
		}
		out += string(c)
	}
	return out
}

// evalPatternDeviation compares each category's frequency in the current
// period against the trailing baseline rate; deviation beyond the ratio in
// either direction fires.
func evalPatternDeviation(w *window) (*finding, error) {
	if w.cfg.DeviationRatio <= 0 || w.cfg.DeviationRatio >= 1 {
		return nil, fmt.Errorf("deviation ratio must be in (0,1), got %v", w.cfg.DeviationRatio)
	}
	periodStart := w.now.Add(-w.cfg.Period)
	baselineStart := w.now.Add(-w.cfg.Baseline)
	baselinePeriods := float64(w.cfg.Baseline-w.cfg.Period) / float64(w.cfg.Period)
	if baselinePeriods < 1 {
		return nil, nil
	}

	current := map[model.ActivityCategory]float64{}
	baseline := map[model.ActivityCategory]float64{}
	for _, ev := range w.events {
		if ev.Type != model.ActivityTypeLog {
			continue
		}
		switch {
		case !ev.Timestamp.Before(periodStart):
			current[ev.Category]++
		case !ev.Timestamp.Before(baselineStart):
			baseline[ev.Category]++
		}
	}

	for cat, total := range baseline {
		rate := total / baselinePeriods
		if rate < 1 {
			continue
		}
		cur := current[cat]
		if cur < rate*w.cfg.DeviationRatio || cur > rate/w.cfg.DeviationRatio {
			return &finding{
				severity: model.SeverityMedium,
				reason: fmt.Sprintf("%s logging at %.0f this period vs usual %.1f per period",
					cat, cur, rate),
				action: "Ask the client what changed in their routine",
			}, nil
		}
	}
	return nil, nil
}

// evalGoalAtRisk inspects milestone events and fires when a tracked metric
// is trending away from its target over the window.
func evalGoalAtRisk(w *window) (*finding, error) {
	type track struct {
		first, last *model.MilestoneMetadata
	}
	metrics := map[string]*track{}

	for _, ev := range w.events {
		if ev.Type != model.ActivityTypeMilestone {
			continue
		}
		meta, err := milestoneMeta(ev)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			continue
		}
		t, ok := metrics[meta.Metric]
		if !ok {
			t = &track{first: meta}
			metrics[meta.Metric] = t
		}
		t.last = meta
	}

	for name, t := range metrics {
		if t.last == nil || t.first == t.last {
			continue
		}
		distFirst := math.Abs(t.first.Current - t.first.Target)
		distLast := math.Abs(t.last.Current - t.last.Target)
		if distLast <= distFirst {
			continue
		}
		severity := model.SeverityMedium
		if distFirst > 0 && (distLast-distFirst)/distFirst >= 0.5 {
			severity = model.SeverityHigh
		}
		return &finding{
			severity: severity,
			reason: fmt.Sprintf("%s moved from %.1f to %.1f while target is %.1f",
				name, t.first.Current, t.last.Current, t.last.Target),
			action: "Review the goal with the client and consider adjusting the target",
		}, nil
	}
	return nil, nil
}

func milestoneMeta(ev *model.ActivityEvent) (*model.MilestoneMetadata, error) {
	if ev.Metadata == nil {
		return nil, nil
	}
	metric, _ := ev.Metadata["metric"].(string)
	current, okC := toFloat(ev.Metadata["current"])
	target, okT := toFloat(ev.Metadata["target"])
	if metric == "" || !okC || !okT {
		return nil, nil
	}
	return &model.MilestoneMetadata{Metric: metric, Current: current, Target: target}, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// evalEngagementDrop fires when logging frequency over the last period falls
// below the configured fraction of the previous period's frequency.
func evalEngagementDrop(w *window) (*finding, error) {
	periodStart := w.now.Add(-w.cfg.Period)
	prevStart := w.now.Add(-2 * w.cfg.Period)

	var current, previous int
	for _, ev := range w.events {
		if ev.Type != model.ActivityTypeLog {
			continue
		}
		switch {
		case !ev.Timestamp.Before(periodStart):
			current++
		case !ev.Timestamp.Before(prevStart):
			previous++
		}
	}
	if previous == 0 || float64(current) >= w.cfg.DropRatio*float64(previous) {
		return nil, nil
	}

	severity := model.SeverityMedium
	if current == 0 {
		severity = model.SeverityHigh
	}
	return &finding{
		severity: severity,
		reason:   fmt.Sprintf("logging dropped from %d to %d entries period over period", previous, current),
		action:   "Reach out before the client disengages further",
	}, nil
}
