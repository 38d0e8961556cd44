package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"rvkernel/internal/config"
	"rvkernel/internal/events"
	"rvkernel/internal/formatting"
	"rvkernel/internal/metrics"
	"rvkernel/internal/safety"
	"rvkernel/internal/services"
	"rvkernel/pkg/logging"
)

// Services holds the kernel components shared by the application.
//
// Field descriptions:
//   - Registry: owns every service definition and drives startup and shutdown
//   - Bus: lifecycle event bus the registry publishes to
//   - Safety: emergency stop coordinator, subscribed to the bus
//   - Metrics: lifecycle collectors, nil when metrics are disabled
//   - Gatherer: Prometheus registry backing Metrics, nil when disabled
type Services struct {
	Registry *services.Registry
	Bus      *events.Bus
	Safety   *safety.Coordinator
	Metrics  *metrics.Lifecycle
	Gatherer *prometheus.Registry

	Formatter formatting.Formatter
}

// Implementation is the code side of a service declared in the
// configuration topology.
type Implementation struct {
	Init          services.InitFunc
	HealthCheck   services.HealthCheckFunc
	Background    services.BackgroundFunc
	Stop          services.StopFunc
	EmergencyStop services.StopFunc
}

// InitializeServices wires the kernel components for cfg.
//
// Initialization Sequence:
//  1. Prometheus registry and lifecycle collectors (when metrics are enabled)
//  2. Lifecycle bus with the configured listener timeout
//  3. Service registry using the bus
//  4. Safety coordinator, attached to the bus as its highest priority listener
func InitializeServices(cfg *Config) (*Services, error) {
	if cfg.KernelConfig == nil {
		return nil, fmt.Errorf("kernel configuration not loaded")
	}
	kcfg := cfg.KernelConfig

	s := &Services{}
	if kcfg.Metrics.Enabled {
		s.Gatherer = prometheus.NewRegistry()
		s.Metrics = metrics.New(s.Gatherer)
	}

	templates := make(map[events.Kind]string, len(kcfg.Events.Messages))
	for kind, template := range kcfg.Events.Messages {
		templates[events.Kind(kind)] = template
	}
	s.Bus = events.NewBus(events.Config{
		ListenerTimeout: kcfg.Events.ListenerTimeout,
		Templates:       templates,
		Metrics:         s.Metrics,
	})

	s.Registry = services.NewRegistry(services.Config{
		MaxParallel:           kcfg.Startup.MaxParallel,
		ServiceTimeout:        kcfg.Startup.ServiceTimeout,
		HealthCheckOnStartup:  kcfg.Startup.HealthCheckOnStartup,
		BackgroundStopTimeout: kcfg.Shutdown.BackgroundTaskTimeout,
		StopTimeout:           kcfg.Shutdown.StopTimeout,
		HealthCheckTimeout:    kcfg.Health.Timeout,
		Bus:                   s.Bus,
		Metrics:               s.Metrics,
	})

	s.Safety = safety.NewCoordinator(s.Registry, s.Metrics)
	s.Safety.Attach()

	format := cfg.OutputFormat
	if format == "" {
		format = formatting.FormatTable
	}
	s.Formatter = formatting.NewFactory().CreateFormatter(formatting.Options{Format: format})

	logging.Debug("Bootstrap", "Kernel components initialized (metrics enabled: %v)", kcfg.Metrics.Enabled)
	return s, nil
}

// RegisterService registers def with the given safety classification.
func (s *Services) RegisterService(def services.Definition, class safety.Classification) error {
	return s.Safety.Register(def, class)
}

// Bind registers every declared service using its implementation from
// impls. Declarations without an implementation are reported together.
func (s *Services) Bind(specs []config.ServiceSpec, impls map[string]Implementation) error {
	var unbound []string
	for _, spec := range specs {
		impl, ok := impls[spec.Name]
		if !ok {
			unbound = append(unbound, spec.Name)
			continue
		}

		def := services.Definition{
			Name:          spec.Name,
			Description:   spec.Description,
			Tags:          spec.Tags,
			Dependencies:  spec.Dependencies(),
			Init:          impl.Init,
			HealthCheck:   impl.HealthCheck,
			Background:    impl.Background,
			Stop:          impl.Stop,
			EmergencyStop: impl.EmergencyStop,
		}
		if err := s.RegisterService(def, spec.Classification()); err != nil {
			return fmt.Errorf("binding service %s: %w", spec.Name, err)
		}
		logging.Debug("Bootstrap", "Bound service %s (%s)", spec.Name, spec.Classification())
	}

	if len(unbound) > 0 {
		return fmt.Errorf("no implementation for declared services: %v", unbound)
	}
	return nil
}
