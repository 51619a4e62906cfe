package odcplugin

import (
	"os"

	"gopkg.in/yaml.v3"
)

// RegistryFile is the declarative bulk-registration document accepted by
// LoadRegistryFile. It mirrors the "--rp name:cmd" / "--rt name:cmd" CLI
// flags (spec.md §6.3) for deployments that prefer a config file to a long
// argv.
type RegistryFile struct {
	ResourcePlugins map[string]string `yaml:"resourcePlugins"`
	RequestTriggers map[string]string `yaml:"requestTriggers"`
}

// LoadRegistryFile reads a YAML file at path and registers its entries into
// resourcePlugins and requestTriggers. Trigger names are validated against
// the verb whitelist; the first invalid name aborts the load and no further
// entries are registered from that section, though resource plugins already
// registered remain registered.
func LoadRegistryFile(path string, resourcePlugins, requestTriggers *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file RegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	for name, cmd := range file.ResourcePlugins {
		resourcePlugins.Register(name, cmd)
	}
	for name, cmd := range file.RequestTriggers {
		if err := requestTriggers.RegisterTrigger(name, cmd); err != nil {
			return err
		}
	}

	return nil
}
