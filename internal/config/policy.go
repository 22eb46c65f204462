package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PolicyConfig holds the booking and scheduling rules. Environment variables
// provide the defaults; a YAML file named by POLICY_FILE may override any
// subset of them.
type PolicyConfig struct {
	Booking  BookingPolicy  `yaml:"booking"`
	Schedule SchedulePolicy `yaml:"schedule"`
}

type BookingPolicy struct {
	// GraceWindow is how long after a session starts bookings are accepted.
	GraceWindow Duration `yaml:"grace_window"`
	// ReportSessionEnded distinguishes requests past the session end from
	// requests past the grace window.
	ReportSessionEnded bool `yaml:"report_session_ended"`
}

type SchedulePolicy struct {
	Opening          ClockTime `yaml:"opening"`
	Closing          ClockTime `yaml:"closing"`
	MinDuration      int       `yaml:"min_duration"`
	MaxDuration      int       `yaml:"max_duration"`
	Timezone         string    `yaml:"timezone"`
	MinLead          Duration  `yaml:"min_lead"`
	MaxHorizonMonths int       `yaml:"max_horizon_months"`
}

// Location resolves Timezone. It is valid after Validate succeeded.
func (s SchedulePolicy) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration is a time.Duration written as "20m" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// ClockTime is a time of day in minutes since midnight, written "HH:MM".
type ClockTime int

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) Minutes() int { return int(c) }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c *ClockTime) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseClockTime(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

func policyFromEnv() (PolicyConfig, error) {
	var (
		p   PolicyConfig
		err error
	)

	grace, err := envDuration("BOOKING_GRACE_WINDOW", 20*time.Minute)
	if err != nil {
		return p, err
	}
	p.Booking.GraceWindow = Duration(grace)

	if p.Booking.ReportSessionEnded, err = envBool("BOOKING_REPORT_SESSION_ENDED", true); err != nil {
		return p, err
	}

	if p.Schedule.Opening, err = ParseClockTime(envString("SCHEDULE_OPENING", "08:00")); err != nil {
		return p, fmt.Errorf("SCHEDULE_OPENING: %w", err)
	}
	if p.Schedule.Closing, err = ParseClockTime(envString("SCHEDULE_CLOSING", "22:00")); err != nil {
		return p, fmt.Errorf("SCHEDULE_CLOSING: %w", err)
	}
	if p.Schedule.MinDuration, err = envInt("SCHEDULE_MIN_DURATION", 90); err != nil {
		return p, err
	}
	if p.Schedule.MaxDuration, err = envInt("SCHEDULE_MAX_DURATION", 300); err != nil {
		return p, err
	}
	p.Schedule.Timezone = envString("SCHEDULE_TIMEZONE", "UTC")

	lead, err := envDuration("SESSION_MIN_LEAD", time.Hour)
	if err != nil {
		return p, err
	}
	p.Schedule.MinLead = Duration(lead)

	if p.Schedule.MaxHorizonMonths, err = envInt("SESSION_MAX_HORIZON_MONTHS", 2); err != nil {
		return p, err
	}

	return p, nil
}

// Overlay reads the YAML document at path over the current values. Keys
// absent from the document keep their value.
func (p *PolicyConfig) Overlay(path string) error {
	const op = "config.PolicyConfig.Overlay"

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p PolicyConfig) Validate() error {
	const op = "config.PolicyConfig.Validate"

	switch {
	case p.Booking.GraceWindow < 0:
		return fmt.Errorf("%s: grace window must not be negative", op)
	case p.Schedule.Opening >= p.Schedule.Closing:
		return fmt.Errorf("%s: opening %s must be before closing %s", op, p.Schedule.Opening, p.Schedule.Closing)
	case p.Schedule.MinDuration <= 0 || p.Schedule.MinDuration > p.Schedule.MaxDuration:
		return fmt.Errorf("%s: invalid duration bounds %d..%d", op, p.Schedule.MinDuration, p.Schedule.MaxDuration)
	case p.Schedule.MinLead < 0:
		return fmt.Errorf("%s: min lead must not be negative", op)
	case p.Schedule.MaxHorizonMonths <= 0:
		return fmt.Errorf("%s: max horizon must be positive", op)
	}

	if _, err := time.LoadLocation(p.Schedule.Timezone); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
