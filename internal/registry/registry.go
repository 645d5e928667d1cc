package registry

import (
	"fmt"
	"strings"
)

// Category selects the invocation shape used to launch a service.
// It is declared explicitly per service instead of being inferred from
// the script path.
type Category string

const (
	CategoryWebDashboard Category = "web-dashboard"
	CategoryHTTPAPI      Category = "http-api"
	CategoryScript       Category = "generic-script"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWebDashboard, CategoryHTTPAPI, CategoryScript:
		return true
	}
	return false
}

// ServiceSpec describes one managed service. Immutable after load.
type ServiceSpec struct {
	Name        string   `json:"name" mapstructure:"name"`
	Category    Category `json:"category" mapstructure:"category"`
	Script      string   `json:"script" mapstructure:"script"`
	Port        int      `json:"port" mapstructure:"port"`
	HealthPath  string   `json:"health_path" mapstructure:"health_path"`
	Description string   `json:"description" mapstructure:"description"`
}

// URL returns the local base URL the service listens on.
func (s ServiceSpec) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// HealthURL returns the full probe URL for the service.
func (s ServiceSpec) HealthURL() string {
	return fmt.Sprintf("http://localhost:%d%s", s.Port, s.HealthPath)
}

func (s ServiceSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("service requires name")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("service %s: unknown category %q", s.Name, s.Category)
	}
	if strings.TrimSpace(s.Script) == "" {
		return fmt.Errorf("service %s: script is required", s.Name)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("service %s: invalid port %d", s.Name, s.Port)
	}
	if s.HealthPath == "" || !strings.HasPrefix(s.HealthPath, "/") {
		return fmt.Errorf("service %s: health_path must start with /", s.Name)
	}
	return nil
}

// Registry is a fixed, ordered table of service specs. Launch order
// follows registry order.
type Registry struct {
	specs []ServiceSpec
}

// New validates the given specs and returns a Registry. Duplicate names
// and duplicate ports are rejected before any process is launched.
func New(specs []ServiceSpec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("registry requires at least one service")
	}
	names := make(map[string]struct{}, len(specs))
	ports := make(map[int]string, len(specs))
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("duplicate service name %q", s.Name)
		}
		names[s.Name] = struct{}{}
		if owner, dup := ports[s.Port]; dup {
			return nil, fmt.Errorf("port %d assigned to both %s and %s", s.Port, owner, s.Name)
		}
		ports[s.Port] = s.Name
	}
	out := make([]ServiceSpec, len(specs))
	copy(out, specs)
	return &Registry{specs: out}, nil
}

// Specs returns the specs in registry order. The slice is a copy.
func (r *Registry) Specs() []ServiceSpec {
	out := make([]ServiceSpec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Lookup returns the spec with the given name.
func (r *Registry) Lookup(name string) (ServiceSpec, bool) {
	for _, s := range r.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceSpec{}, false
}

func (r *Registry) Len() int { return len(r.specs) }

// Default returns the built-in Aviator service table.
func Default() *Registry {
	r, err := New([]ServiceSpec{
		{
			Name:        "realtime-detector",
			Category:    CategoryHTTPAPI,
			Script:      "microservicios/realtime_detector/main.py",
			Port:        8002,
			HealthPath:  "/health",
			Description: "Realtime Detector",
		},
		{
			Name:        "patterns-engine",
			Category:    CategoryHTTPAPI,
			Script:      "microservicios/aviator_patterns_engine/main.py",
			Port:        8003,
			HealthPath:  "/health",
			Description: "Aviator Patterns Engine",
		},
		{
			Name:        "main-dashboard",
			Category:    CategoryWebDashboard,
			Script:      "dashboards/main_dashboard.py",
			Port:        8501,
			HealthPath:  "/health",
			Description: "Main Dashboard",
		},
		{
			Name:        "integrated-dashboard",
			Category:    CategoryWebDashboard,
			Script:      "dashboards/integrated_dashboard.py",
			Port:        8502,
			HealthPath:  "/health",
			Description: "Integrated Dashboard",
		},
	})
	if err != nil {
		// The built-in table is validated by tests; reaching here is a bug.
		panic(err)
	}
	return r
}
