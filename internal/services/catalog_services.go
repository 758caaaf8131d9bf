package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/AnomFIN/AnomRadar/internal/config"
	"github.com/AnomFIN/AnomRadar/pkg/cache"
	"github.com/AnomFIN/AnomRadar/pkg/logger"
	"github.com/AnomFIN/AnomRadar/pkg/probes"
)

type ProbeInfo struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type CatalogServiceMethods interface {
	GetScanPlans() []probes.Plan
	FindPlan(name string) (probes.Plan, bool)
	GetProbes() []ProbeInfo
}

type catalogService struct {
	log *logger.Logger
}

func NewCatalogService() CatalogServiceMethods {
	return &catalogService{
		log: logger.NewLogger(logrus.InfoLevel),
	}
}

// GetScanPlans merges the builtin plans with any plan YAML files from the
// config directory. A file plan with a builtin's name replaces it.
func (c *catalogService) GetScanPlans() []probes.Plan {
	plans := probes.BuiltinPlans()

	byName := make(map[string]int, len(plans))
	for i, plan := range plans {
		byName[plan.Name] = i
	}

	for _, plan := range c.loadPlanFiles() {
		if i, ok := byName[plan.Name]; ok {
			plans[i] = plan
			continue
		}
		byName[plan.Name] = len(plans)
		plans = append(plans, plan)
	}

	return plans
}

func (c *catalogService) FindPlan(name string) (probes.Plan, bool) {
	for _, plan := range c.GetScanPlans() {
		if plan.Name == name {
			return plan, true
		}
	}
	return probes.Plan{}, false
}

func (c *catalogService) loadPlanFiles() []probes.Plan {
	configPath := config.GetConfigPath()

	files, err := os.ReadDir(configPath)
	if err != nil {
		c.log.WithError(err).Debug("No plan config directory")
		return nil
	}

	loaded := make([]probes.Plan, 0)

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".yaml") {
			continue
		}
		// anomradar.yaml is the application config, not a plan.
		if file.Name() == "anomradar.yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configPath, file.Name()))
		if err != nil {
			c.log.WithError(err).WithField("file", file.Name()).Error("Failed to read plan file")
			continue
		}

		var plan probes.Plan
		if err := yaml.Unmarshal(data, &plan); err != nil {
			c.log.WithError(err).WithField("file", file.Name()).Error("Failed to parse plan file")
			continue
		}
		if err := plan.Validate(); err != nil {
			c.log.WithError(err).WithField("file", file.Name()).Error("Invalid plan file")
			continue
		}

		loaded = append(loaded, plan)
	}

	return loaded
}

func (c *catalogService) GetProbes() []ProbeInfo {
	registry := BuildProbeRegistry(nil)
	infos := make([]ProbeInfo, 0, registry.Len())
	for _, probe := range registry.All() {
		infos = append(infos, ProbeInfo{Name: probe.Name(), Priority: probe.Priority()})
	}
	return infos
}

// BuildProbeRegistry assembles the full passive probe set. The cache may be
// nil, probes then query upstream sources on every run.
func BuildProbeRegistry(c *cache.Cache) *probes.Registry {
	registry := probes.NewProbeRegistry()
	registry.Register(probes.NewDNSProbe(c))
	registry.Register(probes.NewTLSProbe())
	registry.Register(probes.NewHTTPProbe())
	registry.Register(probes.NewTechProbe())
	registry.Register(probes.NewPortsProbe())
	registry.Register(probes.NewWhoisProbe(c))
	registry.Register(probes.NewContactsProbe())
	return registry
}

// BuildDiscoverers assembles the discovery collaborators. The company
// registry lookup is only enabled when a registry URL is configured.
func BuildDiscoverers(registryURL string, c *cache.Cache) []probes.Discoverer {
	discoverers := []probes.Discoverer{probes.NewHeuristicDiscoverer()}
	if registryURL != "" {
		discoverers = append(discoverers, probes.NewRegistryLookup(registryURL, c))
	}
	return discoverers
}
