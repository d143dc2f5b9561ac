package extractor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Override adjusts one built-in domain.
type Override struct {
	Enabled    *bool  `toml:"enabled"`
	PromptFile string `toml:"prompt_file"`
	ModelHint  string `toml:"model_hint"`
}

type overrideFile struct {
	Domains map[string]Override `toml:"domains"`
}

// LoadDomains returns the default domains with the overrides in path
// applied. An empty path returns the defaults.
func LoadDomains(path string) ([]Domain, error) {
	domains := DefaultDomains()
	if path == "" {
		return domains, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domains file: %w", err)
	}
	var f overrideFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse domains file: %w", err)
	}
	return Configure(domains, f.Domains, filepath.Dir(path))
}

// Configure applies overrides to domains. Prompt files are resolved
// relative to dir.
func Configure(domains []Domain, overrides map[string]Override, dir string) ([]Domain, error) {
	known := make(map[string]bool, len(domains))
	for i := range domains {
		d := &domains[i]
		known[d.Name] = true
		o, ok := overrides[d.Name]
		if !ok {
			continue
		}
		if o.Enabled != nil {
			d.Enabled = *o.Enabled
		}
		if o.ModelHint != "" {
			d.ModelHint = o.ModelHint
		}
		if o.PromptFile != "" {
			p := o.PromptFile
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("read prompt for %s: %w", d.Name, err)
			}
			d.Prompt = string(data)
		}
	}
	for name := range overrides {
		if !known[name] {
			return nil, fmt.Errorf("unknown domain %q in overrides", name)
		}
	}
	return domains, nil
}

// Enabled filters out disabled domains.
func Enabled(domains []Domain) []Domain {
	var out []Domain
	for _, d := range domains {
		if d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// Lookup finds a domain by name.
func Lookup(domains []Domain, name string) (Domain, bool) {
	for _, d := range domains {
		if d.Name == name {
			return d, true
		}
	}
	return Domain{}, false
}
