package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *KernelConfig)
		fields []string
	}{
		{
			name:   "negative parallelism",
			mutate: func(c *KernelConfig) { c.Startup.MaxParallel = -2 },
			fields: []string{"startup.maxParallel"},
		},
		{
			name: "negative durations",
			mutate: func(c *KernelConfig) {
				c.Shutdown.StopTimeout = -1
				c.Events.ListenerTimeout = -1
			},
			fields: []string{"events.listenerTimeout", "shutdown.stopTimeout"},
		},
		{
			name: "event messages",
			mutate: func(c *KernelConfig) {
				c.Events.Messages = map[string]string{"Paused": "x", "Stopped": ""}
			},
			fields: []string{"events.messages", "events.messages.Stopped"},
		},
		{
			name: "logging",
			mutate: func(c *KernelConfig) {
				c.Logging.Level = "verbose"
				c.Logging.Format = "xml"
			},
			fields: []string{"logging.level", "logging.format"},
		},
		{
			name: "service names",
			mutate: func(c *KernelConfig) {
				c.Services = []ServiceSpec{{Name: ""}, {Name: "a b"}, {Name: "gps"}, {Name: "gps"}}
			},
			fields: []string{"services[0].name", "services[1].name", "services[3].name"},
		},
		{
			name: "safety class",
			mutate: func(c *KernelConfig) {
				c.Services = []ServiceSpec{{Name: "brakes", Safety: "vital"}}
			},
			fields: []string{"services[0].safety"},
		},
		{
			name: "self dependency",
			mutate: func(c *KernelConfig) {
				c.Services = []ServiceSpec{{Name: "loop", Requires: []string{"loop"}}}
			},
			fields: []string{"services[0]"},
		},
		{
			name: "fallbacks",
			mutate: func(c *KernelConfig) {
				c.Services = []ServiceSpec{{
					Name:      "nav",
					Requires:  []string{"map-db"},
					Fallbacks: map[string]string{"gps": "dead-reckoning", "map-db": ""},
				}}
			},
			fields: []string{"services[0].fallbacks", "services[0].fallbacks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			var fields []string
			for _, v := range verrs {
				fields = append(fields, v.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is wrong")
	assert.Equal(t, "field 'a': is wrong", errs.Error())

	errs.Add("", "also broken")
	assert.Equal(t, "validation failed: field 'a': is wrong; also broken", errs.Error())
}
