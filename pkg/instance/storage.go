// Package instance persists Instances (spec section 3): named, configured
// bindings of a Skill, one TOML file per (skill_name, instance_name) under a
// base directory, mirroring pkg/context's storage layout without the
// inheritance/backup machinery an Execution Context needs.
package instance

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Storage persists Instances under baseDir/<skill_name>/<instance_name>.toml.
type Storage struct {
	baseDir string
}

// New creates baseDir if needed and returns a Storage rooted there.
func New(baseDir string) (*Storage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, apperr.Wrap(apperr.BackendUnavailable, "create instance storage directory", err)
	}
	return &Storage{baseDir: baseDir}, nil
}

func (s *Storage) path(skillName, instanceName string) string {
	return filepath.Join(s.baseDir, skillName, instanceName+".toml")
}

// Save enforces the (skill_name, instance_name) uniqueness invariant
// implicitly: writing the same pair again overwrites that instance's file.
func (s *Storage) Save(inst *skill.Instance) error {
	if inst.Metadata.SkillName == "" || inst.Metadata.InstanceName == "" {
		return apperr.New(apperr.InvalidInput, "instance requires skill_name and instance_name")
	}

	path := s.path(inst.Metadata.SkillName, inst.Metadata.InstanceName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "create instance directory", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "create instance temp file", err)
	}
	if err := toml.NewEncoder(f).Encode(inst); err != nil {
		f.Close()
		os.Remove(tmp)
		return apperr.Wrap(apperr.InvalidInput, "encode instance", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return apperr.Wrap(apperr.BackendUnavailable, "close instance temp file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "rename instance file", err)
	}
	return nil
}

// Load reads one instance by its (skill_name, instance_name) key.
func (s *Storage) Load(skillName, instanceName string) (*skill.Instance, error) {
	path := s.path(skillName, instanceName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperr.Newf(apperr.NotFound, "instance %s/%s not found", skillName, instanceName)
	}

	var inst skill.Instance
	if _, err := toml.DecodeFile(path, &inst); err != nil {
		return nil, apperr.Wrap(apperr.ConfigMismatch, "decode instance", err)
	}
	return &inst, nil
}

// Delete removes one instance's file.
func (s *Storage) Delete(skillName, instanceName string) error {
	path := s.path(skillName, instanceName)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperr.Newf(apperr.NotFound, "instance %s/%s not found", skillName, instanceName)
		}
		return apperr.Wrap(apperr.BackendUnavailable, "remove instance file", err)
	}
	return nil
}

// Exists reports whether an instance file is present.
func (s *Storage) Exists(skillName, instanceName string) bool {
	_, err := os.Stat(s.path(skillName, instanceName))
	return err == nil
}

// List returns every persisted instance, sorted by skill then instance name.
func (s *Storage) List() ([]*skill.Instance, error) {
	var out []*skill.Instance
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, apperr.Wrap(apperr.BackendUnavailable, "read instance storage directory", err)
	}

	for _, skillDir := range entries {
		if !skillDir.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.baseDir, skillDir.Name()))
		if err != nil {
			return nil, apperr.Wrap(apperr.BackendUnavailable, "read skill instance directory", err)
		}
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".toml" {
				continue
			}
			instanceName := f.Name()[:len(f.Name())-len(".toml")]
			inst, err := s.Load(skillDir.Name(), instanceName)
			if err != nil {
				continue
			}
			out = append(out, inst)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Metadata.SkillName != out[j].Metadata.SkillName {
			return out[i].Metadata.SkillName < out[j].Metadata.SkillName
		}
		return out[i].Metadata.InstanceName < out[j].Metadata.InstanceName
	})
	return out, nil
}
