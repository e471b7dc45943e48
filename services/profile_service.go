package services

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dinacontroller/bridge/domain/drive"
	customlog "github.com/dinacontroller/bridge/pkg/log"
)

// ErrInvalidProfile wraps parse and validation failures of a submitted profile.
var ErrInvalidProfile = errors.New("invalid drive profile")

// ProfileApplier receives every accepted profile.
// This avoids a dependency on the controller package.
type ProfileApplier interface {
	ApplyProfile(params drive.Params) error
}

// ProfileService manages the drive profile file that tunes the joystick
// mapping.
type ProfileService interface {
	LoadProfile() error
	GetCurrentProfile() drive.Params
	GetCurrentProfileYAML() ([]byte, error)
	UpdateProfile(profileYAML []byte) error
	SetApplier(a ProfileApplier)
}

type profileService struct {
	profilePath string
	logger      customlog.Logger
	applier     ProfileApplier
	current     drive.Params
	mu          sync.RWMutex
}

// NewProfileService creates a service for profilePath and loads it. A missing
// file is not an error; the default parameters are used until a profile is
// written.
func NewProfileService(profilePath string, logger customlog.Logger) (ProfileService, error) {
	if profilePath == "" {
		return nil, fmt.Errorf("profile path cannot be empty")
	}

	s := &profileService{
		profilePath: profilePath,
		logger:      logger.WithField("component", "profile"),
		current:     drive.DefaultParams(),
	}
	if err := s.LoadProfile(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadProfile reads the profile file into the current parameters.
func (s *profileService) LoadProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.profilePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Infof("No drive profile at %s, using defaults", s.profilePath)
		s.current = drive.DefaultParams()
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading drive profile '%s': %w", s.profilePath, err)
	}

	params, err := parseProfile(data)
	if err != nil {
		return fmt.Errorf("drive profile '%s': %w", s.profilePath, err)
	}
	s.current = params
	s.logger.Infof("Loaded drive profile from %s: %+v", s.profilePath, params)
	return nil
}

func (s *profileService) GetCurrentProfile() drive.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GetCurrentProfileYAML returns the profile file as stored, or the current
// parameters rendered as YAML when no file exists yet.
func (s *profileService) GetCurrentProfileYAML() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.profilePath)
	if errors.Is(err, fs.ErrNotExist) {
		return yaml.Marshal(s.current)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading drive profile '%s': %w", s.profilePath, err)
	}
	return data, nil
}

// UpdateProfile validates, applies and persists a new profile. The file is
// only written once the applier has accepted it. Fields left out of
// profileYAML keep their default values.
func (s *profileService) UpdateProfile(profileYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := parseProfile(profileYAML)
	if err != nil {
		s.logger.Warnf("Rejected drive profile: %v", err)
		return err
	}

	if s.applier != nil {
		if err := s.applier.ApplyProfile(params); err != nil {
			return fmt.Errorf("error applying drive profile: %w", err)
		}
	}

	if err := s.persistUnlocked(profileYAML); err != nil {
		if s.applier != nil {
			if rerr := s.applier.ApplyProfile(s.current); rerr != nil {
				s.logger.Errorf("Failed to restore drive profile after write error: %v", rerr)
			}
		}
		return err
	}

	old := s.current
	s.current = params
	s.logger.Infof("Drive profile updated: %+v -> %+v", old, params)
	return nil
}

func (s *profileService) persistUnlocked(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.profilePath), 0755); err != nil {
		return fmt.Errorf("error creating profile directory: %w", err)
	}
	if err := os.WriteFile(s.profilePath, data, 0644); err != nil {
		return fmt.Errorf("error writing drive profile '%s': %w", s.profilePath, err)
	}
	return nil
}

func (s *profileService) SetApplier(a ProfileApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = a
}

func parseProfile(data []byte) (drive.Params, error) {
	params := drive.DefaultParams()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&params); err != nil {
		return drive.Params{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := params.Validate(); err != nil {
		return drive.Params{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return params, nil
}
