package config

import (
	"fmt"
	"strings"
	"time"

	"rvkernel/internal/events"
	"rvkernel/internal/safety"
	"rvkernel/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateServiceName checks that a service name is usable as a registry key
// and as a Mermaid node label.
func ValidateServiceName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: field, Value: name, Message: "is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: field, Value: name, Message: "must not exceed 100 characters"}
	}
	if strings.ContainsAny(name, " \t\n") {
		return ValidationError{Field: field, Value: name, Message: "cannot contain whitespace"}
	}
	return nil
}

func (ve *ValidationErrors) addErr(err error) {
	if err == nil {
		return
	}
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
		return
	}
	ve.Add("", err.Error())
}

// Validate checks the configuration and returns ValidationErrors describing
// every problem, or nil.
func (c KernelConfig) Validate() error {
	var errs ValidationErrors

	if c.Startup.MaxParallel < 0 {
		errs.Add("startup.maxParallel", "must not be negative", c.Startup.MaxParallel)
	}
	durations := map[string]time.Duration{
		"startup.serviceTimeout":         c.Startup.ServiceTimeout,
		"shutdown.backgroundTaskTimeout": c.Shutdown.BackgroundTaskTimeout,
		"shutdown.stopTimeout":           c.Shutdown.StopTimeout,
		"shutdown.timeout":               c.Shutdown.Timeout,
		"events.listenerTimeout":         c.Events.ListenerTimeout,
		"health.interval":                c.Health.Interval,
		"health.timeout":                 c.Health.Timeout,
	}
	for _, field := range sortedKeys(durations) {
		if d := durations[field]; d < 0 {
			errs.Add(field, "must not be negative", d)
		}
	}

	kinds := []string{string(events.KindPreShutdown), string(events.KindStarted), string(events.KindStopped), string(events.KindFailed)}
	for _, kind := range sortedKeys(c.Events.Messages) {
		errs.addErr(ValidateOneOf("events.messages", kind, kinds))
		if c.Events.Messages[kind] == "" {
			errs.Add("events.messages."+kind, "must not be empty", kind)
		}
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	errs.addErr(ValidateOneOf("logging.format", c.Logging.Format,
		[]string{string(logging.FormatText), string(logging.FormatJSON)}))

	c.validateServices(&errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c KernelConfig) validateServices(errs *ValidationErrors) {
	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		prefix := fmt.Sprintf("services[%d]", i)
		if err := ValidateServiceName(prefix+".name", svc.Name); err != nil {
			errs.addErr(err)
			continue
		}
		if seen[svc.Name] {
			errs.Add(prefix+".name", "duplicate service name", svc.Name)
		}
		seen[svc.Name] = true

		if svc.Safety != "" {
			if _, err := safety.ParseClassification(svc.Safety); err != nil {
				errs.Add(prefix+".safety", err.Error(), svc.Safety)
			}
		}

		declared := make(map[string]bool)
		for _, group := range [][]string{svc.Requires, svc.Optional, svc.Runtime} {
			for _, dep := range group {
				if dep == svc.Name {
					errs.Add(prefix, "service cannot depend on itself", dep)
				}
				declared[dep] = true
			}
		}
		for _, dep := range sortedKeys(svc.Fallbacks) {
			if !declared[dep] {
				errs.Add(prefix+".fallbacks", fmt.Sprintf("fallback for undeclared dependency %s", dep), dep)
			}
			if svc.Fallbacks[dep] == "" {
				errs.Add(prefix+".fallbacks", fmt.Sprintf("empty fallback for %s", dep), dep)
			}
		}
	}
}
