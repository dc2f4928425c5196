package alerts

import (
	"cmp"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/tolerancevision/tolerancevision/pkg/aggregate"
	"github.com/tolerancevision/tolerancevision/server/internal/config"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID           string           `json:"id"`
	RuleName     string           `json:"rule_name"`
	Subject      string           `json:"subject"` // "project" or floor id
	SubjectLabel string           `json:"subject_label"`
	Severity     string           `json:"severity"`
	Message      string           `json:"message"`
	Value        float64          `json:"value"`
	Counts       aggregate.Counts `json:"counts"`    // subject totals at the last state change
	PassRate     float64          `json:"pass_rate"` // subject pass rate at the last state change
	FiredAt      time.Time        `json:"fired_at"`
	ResolvedAt   *time.Time       `json:"resolved_at,omitempty"`
	State        string           `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against QC summaries and delivers webhook
// notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.AlertRule
	webhooks []config.WebhookConfig
	active   map[string]*Alert    // key: "ruleName:subject"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts

	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an Engine from the alert configuration.
// An Engine with empty rules is valid; Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
	e.SetRules(cfg.Rules)
	return e
}

// SetRules replaces the rule set. Rules with malformed conditions are logged
// and dropped. Alerts belonging to removed rules resolve on the next Evaluate.
func (e *Engine) SetRules(rules []config.AlertRule) {
	kept := make([]config.AlertRule, 0, len(rules))
	for _, r := range rules {
		if err := checkCondition(r.Condition); err != nil {
			slog.Warn("alerts: ignoring rule", "rule", r.Name, "err", err)
			continue
		}
		kept = append(kept, r)
	}

	e.mu.Lock()
	e.rules = kept
	e.mu.Unlock()
}

// Rules returns the active rule set.
func (e *Engine) Rules() []config.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.rules)
}

// Evaluate tests all configured rules against the project and every floor in
// sum. Alerts that fire are stored and webhook delivery is triggered
// asynchronously. Alerts that were firing but whose condition is now false,
// or whose floor or rule no longer exists, are resolved.
func (e *Engine) Evaluate(sum aggregate.Summary) {
	now := e.now()
	subs := subjects(sum)

	var fired, resolved []Alert

	e.mu.Lock()
	seen := make(map[string]bool)
	for _, rule := range e.rules {
		for _, s := range subs {
			if !inScope(rule.Scope, s) {
				continue
			}
			key := rule.Name + ":" + s.Key
			seen[key] = true

			fires, value := evalCondition(rule.Condition, s)
			if !fires {
				if a, ok := e.active[key]; ok {
					a.Counts, a.PassRate = s.Counts, s.PassRate
				}
				if a, ok := e.resolve(key, now); ok {
					resolved = append(resolved, a)
				}
				continue
			}

			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if last, ok := e.lastFire[key]; ok && now.Sub(last) <= cooldown {
				continue
			}
			sev := rule.Severity
			if sev == "" {
				sev = "warning"
			}
			a := &Alert{
				ID:           fmt.Sprintf("%s:%s:%d", rule.Name, s.Key, now.UnixNano()),
				RuleName:     rule.Name,
				Subject:      s.Key,
				SubjectLabel: s.Label,
				Severity:     sev,
				Value:        value,
				Counts:       s.Counts,
				PassRate:     s.PassRate,
				Message: fmt.Sprintf("[%s] %s fired on %s: %s (value %.2f)",
					sev, rule.Name, s.Label, rule.Condition, value),
				FiredAt: now,
				State:   "firing",
			}
			e.active[key] = a
			e.lastFire[key] = now
			fired = append(fired, *a)
		}
	}
	for key := range e.active {
		if !seen[key] {
			if a, ok := e.resolve(key, now); ok {
				resolved = append(resolved, a)
			}
		}
	}
	e.mu.Unlock()

	for _, a := range fired {
		slog.Warn("alert fired",
			"rule", a.RuleName,
			"subject", a.SubjectLabel,
			"value", a.Value,
			"severity", a.Severity,
		)
		e.dispatch(a)
	}
	for _, a := range resolved {
		slog.Info("alert resolved", "rule", a.RuleName, "subject", a.SubjectLabel)
		e.dispatch(a)
	}
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *Alert) int {
		return cmp.Compare(b.latest().UnixNano(), a.latest().UnixNano())
	})
	return out
}

// FiringCount returns the number of alerts currently firing.
func (e *Engine) FiringCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Wait blocks until all in-flight webhook deliveries have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// resolve moves a firing alert to history. Callers hold e.mu.
func (e *Engine) resolve(key string, now time.Time) (Alert, bool) {
	a, ok := e.active[key]
	if !ok {
		return Alert{}, false
	}
	at := now
	a.State = "resolved"
	a.ResolvedAt = &at
	delete(e.active, key)

	e.history = append(e.history, a)
	if len(e.history) > maxHistoryLen {
		e.history = e.history[len(e.history)-maxHistoryLen:]
	}
	return *a, true
}

func (e *Engine) dispatch(a Alert) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(&a)
	}()
}

func (a *Alert) latest() time.Time {
	if a.ResolvedAt != nil {
		return *a.ResolvedAt
	}
	return a.FiredAt
}

func inScope(scope string, s Subject) bool {
	switch scope {
	case ScopeProject:
		return s.Key == ScopeProject
	case ScopeFloor:
		return s.Key != ScopeProject
	default:
		return true
	}
}
