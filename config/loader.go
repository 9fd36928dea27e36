package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/encoding/yaml"
)

//go:embed profile.cue
var profileSchema string

// LoadProfileFromReader parses a YAML or JSON profile.
func LoadProfileFromReader(r io.Reader) (*Profile, error) {
	ctx := cuecontext.New()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	// Parse as YAML (superset of JSON)
	file, err := yaml.Extract("", data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	return decodeProfile(ctx, ctx.BuildFile(file))
}

// LoadProfile loads a profile from a .yaml, .yml, .json or .cue file. CUE
// files are loaded as instances, so they may import other packages of their
// module.
func LoadProfile(path string) (*Profile, error) {
	ctx := cuecontext.New()

	var val cue.Value
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		instances := load.Instances([]string{absPath}, &load.Config{
			Dir:       filepath.Dir(absPath),
			DataFiles: true,
		})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no instances loaded from %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		val = ctx.BuildInstance(instances[0])
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		val = ctx.CompileBytes(data, cue.Filename(path))
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		file, err := yaml.Extract(path, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		val = ctx.BuildFile(file)
	}

	return decodeProfile(ctx, val)
}

// decodeProfile checks val against the #Profile definition, which rejects
// unknown keys and malformed values, then decodes it.
func decodeProfile(ctx *cue.Context, val cue.Value) (*Profile, error) {
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to build CUE value: %w", err)
	}

	def := ctx.CompileString(profileSchema, cue.Filename("profile.cue")).LookupPath(cue.ParsePath("#Profile"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("profile schema: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	var p Profile
	if err := unified.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}
