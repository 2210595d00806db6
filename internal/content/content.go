// Package content loads the YAML content pack: narrative seeds and chains,
// the codex, choice templates and land data.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sburbterm/internal/game/choice"
	"sburbterm/internal/game/land"
	"sburbterm/internal/game/narrative"
)

//go:embed default.yaml
var defaultPack []byte

// Pack is a complete content pack.
type Pack struct {
	Narrative narrative.Corpus             `yaml:"narrative"`
	Choices   map[string]choice.Definition `yaml:"choices"`
	Lands     land.Catalog                 `yaml:"lands"`
}

// Default decodes the embedded pack. Each call returns a fresh copy.
func Default() (Pack, error) {
	var p Pack
	if err := yaml.Unmarshal(defaultPack, &p); err != nil {
		return Pack{}, fmt.Errorf("default content: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Pack{}, fmt.Errorf("default content: %w", err)
	}
	return p, nil
}

// Load decodes path on top of the default pack. An empty path returns the
// default pack.
func Load(path string) (Pack, error) {
	p, err := Default()
	if err != nil || path == "" {
		return p, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Pack{}, fmt.Errorf("read content %s: %w", path, err)
	}
	return Merge(p, raw, path)
}

// Merge decodes raw over base. Maps merge by key and lists replace, which is
// how yaml.v3 decodes into a populated value.
func Merge(base Pack, raw []byte, name string) (Pack, error) {
	if err := yaml.Unmarshal(raw, &base); err != nil {
		return Pack{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := base.Validate(); err != nil {
		return Pack{}, fmt.Errorf("%s: %w", name, err)
	}
	return base, nil
}

func (p Pack) Validate() error {
	if err := p.Narrative.Validate(); err != nil {
		return fmt.Errorf("narrative: %w", err)
	}
	for name, def := range p.Choices {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("choice template %s: %w", name, err)
		}
		for _, o := range def.Options {
			for _, f := range o.FollowUps {
				if f.Type != choice.FollowNewChoice || f.Template == "" {
					continue
				}
				if _, ok := p.Choices[f.Template]; !ok {
					return fmt.Errorf("choice template %s: follow-up references unknown template %q", name, f.Template)
				}
			}
		}
	}
	if err := p.Lands.Validate(); err != nil {
		return fmt.Errorf("lands: %w", err)
	}
	return nil
}
