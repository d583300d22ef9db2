// pkg/chaos/chaos.go
package chaos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Experiment declares a hypothesis about how the platform behaves
// under a fault, the faults to inject, and how to judge the outcome.
type Experiment struct {
	Name        string
	Hypothesis  string
	SteadyState []Metric
	Method      []Action
	Rollback    []Action
	Validation  []Assertion
	Duration    time.Duration
	// SampleInterval is how often steady-state metrics are polled while
	// the fault is active. Zero means once per second.
	SampleInterval time.Duration
	BlastRadius    float64 // 0.0 to 1.0 (share of the system affected)
}

// Metric is a measurable system property with an acceptable range.
type Metric struct {
	Name      string
	Query     func(context.Context) (float64, error)
	Threshold Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Met reports whether the observed value satisfies the threshold.
func (t Threshold) Met(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

// InvariantMetric builds a metric from a SQL query counting rows that
// violate a platform invariant. A healthy system reports zero.
func InvariantMetric(db *sql.DB, name, query string) Metric {
	return Metric{
		Name: name,
		Query: func(ctx context.Context) (float64, error) {
			var violations int64
			if err := db.QueryRowContext(ctx, query).Scan(&violations); err != nil {
				return 0, fmt.Errorf("failed to measure %s: %w", name, err)
			}
			return float64(violations), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

// RateMetric builds a metric from a SQL query returning a percentage
// that must stay above floor.
func RateMetric(db *sql.DB, name, query string, floor float64) Metric {
	return Metric{
		Name: name,
		Query: func(ctx context.Context) (float64, error) {
			var rate float64
			if err := db.QueryRowContext(ctx, query).Scan(&rate); err != nil {
				return 0, fmt.Errorf("failed to measure %s: %w", name, err)
			}
			return rate, nil
		},
		Threshold: Threshold{Operator: ">", Value: floor},
	}
}

// Action injects a fault or undoes one.
type Action struct {
	Type       string // latency, failure, partition, resource_exhaustion
	Target     string // service or component name
	Parameters map[string]interface{}
	Execute    func(context.Context) error
}

// Assertion judges the final observation of a metric.
type Assertion struct {
	Metric    string
	Condition func(float64) bool
	Message   string
}

// ExperimentResult captures what happened during one run.
type ExperimentResult struct {
	ExperimentName   string                 `json:"experiment_name"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          time.Time              `json:"end_time"`
	Duration         time.Duration          `json:"duration"`
	HypothesisHeld   bool                   `json:"hypothesis_held"`
	SteadyStateValid bool                   `json:"steady_state_valid"`
	Violations       []MetricViolation      `json:"violations"`
	Observations     map[string][]DataPoint `json:"observations"`
	ErrorEvents      []ErrorEvent           `json:"error_events"`
	MTTR             *time.Duration         `json:"mttr,omitempty"`
}

type MetricViolation struct {
	MetricName string    `json:"metric_name"`
	Expected   float64   `json:"expected"`
	Actual     float64   `json:"actual"`
	Timestamp  time.Time `json:"timestamp"`
}

type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type ErrorEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
	Component string    `json:"component"`
}

// Engine runs experiments against a live deployment.
type Engine struct {
	tracer      trace.Tracer
	db          *sql.DB
	experiments []Experiment
	results     []ExperimentResult
	mu          sync.Mutex
}

func NewEngine(db *sql.DB) *Engine {
	return &Engine{
		tracer: otel.Tracer("foodshare/chaos"),
		db:     db,
	}
}

func (ce *Engine) RegisterExperiment(exp Experiment) {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	ce.experiments = append(ce.experiments, exp)
}

func (ce *Engine) GetExperiments() []Experiment {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	return ce.experiments
}

// RunExperiment executes one experiment: confirm the steady state,
// inject the faults, observe, roll back, then judge the hypothesis.
func (ce *Engine) RunExperiment(ctx context.Context, exp Experiment) (*ExperimentResult, error) {
	ctx, span := ce.tracer.Start(ctx, "chaos.run_experiment",
		trace.WithAttributes(
			attribute.String("experiment.name", exp.Name),
		),
	)
	defer span.End()

	result := &ExperimentResult{
		ExperimentName: exp.Name,
		StartTime:      time.Now(),
		Observations:   make(map[string][]DataPoint),
	}

	span.AddEvent("validating_steady_state")
	if violations := ce.measureAll(ctx, exp.SteadyState); len(violations) > 0 {
		result.Violations = violations
		return result, errors.New("steady state invalid, aborting experiment")
	}
	result.SteadyStateValid = true

	span.AddEvent("injecting_faults")
	for _, action := range exp.Method {
		if err := action.Execute(ctx); err != nil {
			result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
				Timestamp: time.Now(),
				Error:     err.Error(),
				Component: action.Target,
			})
			span.RecordError(err)
		}
	}

	span.AddEvent("observing")
	ce.observe(ctx, exp, result)

	span.AddEvent("rolling_back")
	for _, action := range exp.Rollback {
		if err := action.Execute(ctx); err != nil {
			span.RecordError(err)
		}
	}

	span.AddEvent("judging_hypothesis")
	result.HypothesisHeld = ce.judge(exp.Validation, result)
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	ce.mu.Lock()
	ce.results = append(ce.results, *result)
	ce.mu.Unlock()

	span.SetAttributes(
		attribute.Bool("hypothesis_held", result.HypothesisHeld),
		attribute.Int("violations", len(result.Violations)),
	)
	return result, nil
}

// observe samples the steady-state metrics for the experiment's
// duration, recording violations and the time to recover from the
// first one.
func (ce *Engine) observe(ctx context.Context, exp Experiment, result *ExperimentResult) {
	window, cancel := context.WithTimeout(ctx, exp.Duration)
	defer cancel()

	interval := exp.SampleInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var firstViolation time.Time
	recovered := false

	for {
		select {
		case <-window.Done():
			return
		case <-ticker.C:
			healthy := true
			for _, metric := range exp.SteadyState {
				value, err := metric.Query(ctx)
				if err != nil {
					result.ErrorEvents = append(result.ErrorEvents, ErrorEvent{
						Timestamp: time.Now(),
						Error:     err.Error(),
						Component: metric.Name,
					})
					continue
				}
				result.Observations[metric.Name] = append(
					result.Observations[metric.Name],
					DataPoint{Timestamp: time.Now(), Value: value},
				)
				if !metric.Threshold.Met(value) {
					healthy = false
					if firstViolation.IsZero() {
						firstViolation = time.Now()
					}
					result.Violations = append(result.Violations, MetricViolation{
						MetricName: metric.Name,
						Expected:   metric.Threshold.Value,
						Actual:     value,
						Timestamp:  time.Now(),
					})
				}
			}
			if healthy && !firstViolation.IsZero() && !recovered {
				mttr := time.Since(firstViolation)
				result.MTTR = &mttr
				recovered = true
			}
		}
	}
}

// measureAll queries every metric once and returns the violations.
func (ce *Engine) measureAll(ctx context.Context, metrics []Metric) []MetricViolation {
	var violations []MetricViolation
	for _, metric := range metrics {
		value, err := metric.Query(ctx)
		if err != nil {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     -1,
				Timestamp:  time.Now(),
			})
			continue
		}
		if !metric.Threshold.Met(value) {
			violations = append(violations, MetricViolation{
				MetricName: metric.Name,
				Expected:   metric.Threshold.Value,
				Actual:     value,
				Timestamp:  time.Now(),
			})
		}
	}
	return violations
}

// judge evaluates each assertion against the final observation of its
// metric. A metric that was never observed fails its assertion.
func (ce *Engine) judge(assertions []Assertion, result *ExperimentResult) bool {
	for _, assertion := range assertions {
		observations := result.Observations[assertion.Metric]
		if len(observations) == 0 {
			return false
		}
		final := observations[len(observations)-1].Value
		if !assertion.Condition(final) {
			return false
		}
	}
	return true
}

// GameDay runs a series of experiments with a cooldown between them.
type GameDay struct {
	Name         string
	Date         time.Time
	Scenarios    []Experiment
	Participants []string
	Runbooks     map[string]string
	// Cooldown between experiments; zero means 30 seconds.
	Cooldown time.Duration
}

func (ce *Engine) ExecuteGameDay(ctx context.Context, gameDay GameDay) error {
	ctx, span := ce.tracer.Start(ctx, "chaos.game_day",
		trace.WithAttributes(
			attribute.String("gameday.name", gameDay.Name),
		),
	)
	defer span.End()

	cooldown := gameDay.Cooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	fmt.Printf("🎮 Starting Game Day: %s\n", gameDay.Name)
	fmt.Printf("📅 Date: %s\n", gameDay.Date)
	fmt.Printf("👥 Participants: %v\n", gameDay.Participants)

	for i, scenario := range gameDay.Scenarios {
		fmt.Printf("\n🔬 Experiment %d/%d: %s\n", i+1, len(gameDay.Scenarios), scenario.Name)
		fmt.Printf("💡 Hypothesis: %s\n", scenario.Hypothesis)

		result, err := ce.RunExperiment(ctx, scenario)
		if err != nil {
			fmt.Printf("❌ Experiment failed: %v\n", err)
			continue
		}
		ce.printExperimentResult(result)

		if i < len(gameDay.Scenarios)-1 {
			time.Sleep(cooldown)
		}
	}
	return nil
}

func (ce *Engine) printExperimentResult(result *ExperimentResult) {
	if result.HypothesisHeld {
		fmt.Printf("✅ Hypothesis held\n")
	} else {
		fmt.Printf("❌ Hypothesis violated\n")
	}
	for _, v := range result.Violations {
		fmt.Printf("   - %s: expected %.2f, got %.2f\n", v.MetricName, v.Expected, v.Actual)
	}
	if result.MTTR != nil {
		fmt.Printf("⏱️  MTTR: %s\n", *result.MTTR)
	}
	fmt.Printf("📊 Duration: %s\n", result.Duration)
}
