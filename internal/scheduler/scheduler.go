package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
)

// JobFunc is the function signature for scheduled jobs
type JobFunc func(ctx context.Context) error

// Scheduler runs one job on a clock-aligned schedule
type Scheduler struct {
	gocronScheduler gocron.Scheduler
	job             gocron.Job
	timezone        *time.Location
	runImmediately  bool
	logger          *slog.Logger
}

// Config holds scheduler configuration
type Config struct {
	Interval       string         // Duration (e.g., "5m") or cron expression (e.g., "*/5 * * * *")
	Timezone       *time.Location // Timezone for cron expressions (default: UTC)
	RunImmediately bool           // Execute immediately on start
	Logger         *slog.Logger
	Name           string        // Job name used in logs
	Timeout        time.Duration // Upper bound for one run, zero for none

	// AfterRun is called once per run with its outcome
	AfterRun func(err error, took time.Duration)
}

// cronPattern matches cron expressions (5 or 6 fields)
var cronPattern = regexp.MustCompile(`^(\S+\s+){4,5}\S+$`)

// cronParser accepts the same 5 or 6 field syntax gocron does
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// alignment maps a duration unit onto a cron step within its enclosing cycle
type alignment struct {
	unit  time.Duration
	name  string
	cycle int
	cron  string
}

var alignments = []alignment{
	{unit: time.Second, name: "second", cycle: 60, cron: "*/%d * * * * *"},
	{unit: time.Minute, name: "minute", cycle: 60, cron: "*/%d * * * *"},
	{unit: time.Hour, name: "hour", cycle: 24, cron: "0 */%d * * *"},
}

// expectedRunsSampled is how many upcoming cron runs ExpectedInterval inspects
const expectedRunsSampled = 10

// NewScheduler creates a scheduler running jobFunc on a clock-aligned schedule.
// Runs never overlap: a tick arriving while the previous run is still busy is skipped.
func NewScheduler(ctx context.Context, cfg Config, jobFunc JobFunc) (*Scheduler, error) {
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "job"
	}

	s := &Scheduler{
		timezone:       cfg.Timezone,
		runImmediately: cfg.RunImmediately,
		logger:         cfg.Logger.With("job", cfg.Name),
	}

	cronExpr, err := toCron(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval: %w", err)
	}
	s.logger.Info("Scheduling job", "interval", cfg.Interval, "cron", cronExpr, "timezone", cfg.Timezone.String())

	gocronScheduler, err := gocron.NewScheduler(
		gocron.WithLocation(cfg.Timezone),
		gocron.WithLogger(newGocronLoggerAdapter(cfg.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	s.gocronScheduler = gocronScheduler

	job, err := gocronScheduler.NewJob(
		gocron.CronJob(cronExpr, len(strings.Fields(cronExpr)) == 6),
		gocron.NewTask(func() { s.run(ctx, cfg, jobFunc) }),
		gocron.WithName(cfg.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled job: %w", err)
	}
	s.job = job

	return s, nil
}

// run executes one bounded run and reports it
func (s *Scheduler) run(ctx context.Context, cfg Config, jobFunc JobFunc) {
	if ctx.Err() != nil {
		return
	}

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := jobFunc(runCtx)
	took := time.Since(start)

	if err != nil {
		s.logger.Error("Job execution failed", "error", err, "duration", took)
	} else {
		s.logger.Debug("Job finished", "duration", took)
	}
	if cfg.AfterRun != nil {
		cfg.AfterRun(err, took)
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	if s.runImmediately {
		s.logger.Info("Executing job immediately before starting scheduler")
		if err := s.job.RunNow(); err != nil {
			// Scheduled runs still go ahead
			s.logger.Error("Immediate execution failed", "error", err)
		}
	}

	s.gocronScheduler.Start()

	nextRun, err := s.NextRun()
	if err == nil {
		s.logger.Info("Scheduler started", "next_run", nextRun.Format(time.RFC3339), "timezone", s.timezone.String())
	} else {
		s.logger.Info("Scheduler started")
	}

	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.gocronScheduler.Shutdown()
}

// NextRun returns the next scheduled run time
func (s *Scheduler) NextRun() (time.Time, error) {
	nextRun, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get next run: %w", err)
	}
	return nextRun, nil
}

// ExpectedInterval returns the longest gap between consecutive runs of
// interval, used by the health checker to decide when a run is late. Cron
// expressions are sampled over their upcoming runs, so "0 9 * * 1-5"
// reports the weekend gap.
func ExpectedInterval(interval string, timezone *time.Location, now time.Time) (time.Duration, error) {
	if !IsCronExpression(interval) {
		if _, err := durationToCron(interval); err != nil {
			return 0, err
		}
		return time.ParseDuration(interval)
	}

	if timezone == nil {
		timezone = time.UTC
	}
	schedule, err := cronParser.Parse(interval)
	if err != nil {
		return 0, fmt.Errorf("invalid cron expression: %w", err)
	}

	var longest time.Duration
	prev := schedule.Next(now.In(timezone))
	for range expectedRunsSampled {
		next := schedule.Next(prev)
		if next.IsZero() {
			break
		}
		longest = max(longest, next.Sub(prev))
		prev = next
	}
	if longest == 0 {
		return 0, fmt.Errorf("cron expression %q never repeats", interval)
	}
	return longest, nil
}

// IsCronExpression checks if a string is a cron expression (vs duration)
func IsCronExpression(s string) bool {
	return cronPattern.MatchString(s)
}

// toCron returns interval as a cron expression gocron can schedule
func toCron(interval string) (string, error) {
	if IsCronExpression(interval) {
		if _, err := cronParser.Parse(interval); err != nil {
			return "", fmt.Errorf("invalid cron expression: %w", err)
		}
		return interval, nil
	}
	return durationToCron(interval)
}

// durationToCron converts a duration string to a clock-aligned cron expression
// Examples:
//
//	"5m" -> "*/5 * * * *"
//	"1h" -> "0 */1 * * *"
//	"30s" -> "*/30 * * * * *"
func durationToCron(durationStr string) (string, error) {
	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		return "", fmt.Errorf("invalid duration format: %w", err)
	}

	var a alignment
	switch {
	case duration < time.Minute:
		a = alignments[0]
	case duration < time.Hour:
		a = alignments[1]
	default:
		a = alignments[2]
	}

	if duration%a.unit != 0 {
		return "", fmt.Errorf("duration must be whole seconds, minutes, or hours (got %s)", durationStr)
	}
	n := int(duration / a.unit)
	if n <= 0 || a.cycle%n != 0 {
		return "", fmt.Errorf("%s intervals must divide evenly into %d (got %s)", a.name, a.cycle, durationStr)
	}
	return fmt.Sprintf(a.cron, n), nil
}

// ValidateScheduleInterval validates a schedule interval (duration or cron)
func ValidateScheduleInterval(interval string) error {
	if interval == "" {
		return nil // one-shot mode
	}
	_, err := toCron(interval)
	return err
}

// gocronLoggerAdapter adapts slog.Logger to gocron.Logger interface
type gocronLoggerAdapter struct {
	logger *slog.Logger
}

func newGocronLoggerAdapter(logger *slog.Logger) gocron.Logger {
	return &gocronLoggerAdapter{logger: logger.With("component", "gocron")}
}

func (a *gocronLoggerAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}

func (a *gocronLoggerAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *gocronLoggerAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *gocronLoggerAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

// DescribeSchedule provides a human-readable description of the schedule
func DescribeSchedule(interval string, timezone *time.Location) string {
	if timezone == nil {
		timezone = time.UTC
	}

	if IsCronExpression(interval) {
		return fmt.Sprintf("cron: %s (%s)", interval, timezone.String())
	}

	duration, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Sprintf("invalid: %s", interval)
	}

	cronExpr, err := durationToCron(interval)
	if err != nil {
		return fmt.Sprintf("duration: %s (non-aligned)", interval)
	}

	return fmt.Sprintf("every %s (aligned to clock, cron: %s, %s)", duration, cronExpr, timezone.String())
}
