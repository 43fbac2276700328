package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// schemaVersion guards the persisted records. A file with another version is
// discarded instead of being half-applied.
const schemaVersion = 1

// PersistedPrinter is the reconnection metadata written after a successful
// pairing. AutoReconnect is the role preference captured at connect time.
type PersistedPrinter struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Role          Role    `json:"role"`
	Dialect       Dialect `json:"dialect"`
	Codepage      string  `json:"codepage"`
	Endpoint      uint8   `json:"endpoint"`
	Serial        string  `json:"serial,omitempty"`
	VendorID      uint16  `json:"vendor_id"`
	ProductID     uint16  `json:"product_id"`
	AutoReconnect bool    `json:"auto_reconnect"`
}

// Config is the user-set behavior of a role, independent of any device.
type Config struct {
	AutoReconnect bool `json:"auto_reconnect"`
	PaperWidthMm  int  `json:"paper_width_mm"`
	Copies        int  `json:"copies"`
	NotifyOnPrint bool `json:"notify_on_print"`
}

// DefaultConfig returns the defaults a role starts with. Kitchen tickets are
// announced with the buzzer; other roles print silently.
func DefaultConfig(role Role) Config {
	return Config{
		AutoReconnect: true,
		PaperWidthMm:  80,
		Copies:        1,
		NotifyOnPrint: role == RoleKitchen,
	}
}

// Validate rejects config values the hardware cannot honor.
func (c Config) Validate() error {
	if c.PaperWidthMm != 58 && c.PaperWidthMm != 80 {
		return fmt.Errorf("paper_width_mm must be 58 or 80, got %d", c.PaperWidthMm)
	}
	if c.Copies < 1 {
		return fmt.Errorf("copies must be at least 1, got %d", c.Copies)
	}
	return nil
}

type persistedPrintersFile struct {
	Version  int                `json:"version"`
	Printers []PersistedPrinter `json:"printers"`
}

type persistedConfigsFile struct {
	Version int             `json:"version"`
	Configs map[Role]Config `json:"configs"`
}

// Store persists the two small records this subsystem owns: the per-role
// config map and the reconnection metadata list. Both are loaded once at
// construction and written after every mutation; a failed save is logged and
// retried on the next mutation.
type Store struct {
	printersPath string
	configsPath  string
	logger       *zap.Logger

	mu       sync.Mutex
	printers []PersistedPrinter
	configs  map[Role]Config
}

// NewStore loads (or initializes) the persisted records under dir.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		printersPath: filepath.Join(dir, "printers.json"),
		configsPath:  filepath.Join(dir, "printer_configs.json"),
		logger:       logger,
		configs:      make(map[Role]Config),
	}

	s.loadPrinters()
	s.loadConfigs()
	return s, nil
}

// Printers returns a copy of the persisted reconnection list.
func (s *Store) Printers() []PersistedPrinter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PersistedPrinter{}, s.printers...)
}

// SavePrinter upserts one entry by printer id and writes the file.
func (s *Store) SavePrinter(entry PersistedPrinter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i, p := range s.printers {
		if p.ID == entry.ID {
			s.printers[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		s.printers = append(s.printers, entry)
	}

	s.savePrintersLocked()
}

// RemovePrinter drops an entry so it is not retried on the next startup.
func (s *Store) RemovePrinter(printerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.printers {
		if p.ID == printerID {
			s.printers = append(s.printers[:i], s.printers[i+1:]...)
			s.savePrintersLocked()
			return
		}
	}
}

// Config returns the role's config, materializing defaults on first
// reference.
func (s *Store) Config(role Role) Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.configs[role]; ok {
		return cfg
	}

	cfg := DefaultConfig(role)
	s.configs[role] = cfg
	s.saveConfigsLocked()
	return cfg
}

// SetConfig validates and persists a role config.
func (s *Store) SetConfig(role Role, cfg Config) error {
	if !role.Valid() {
		return fmt.Errorf("unknown role: %s", role)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[role] = cfg
	s.saveConfigsLocked()
	return nil
}

func (s *Store) loadPrinters() {
	data, err := os.ReadFile(s.printersPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read printer metadata", zap.Error(err))
		}
		return
	}

	var file persistedPrintersFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("discarding unreadable printer metadata", zap.Error(err))
		return
	}
	if file.Version != schemaVersion {
		s.logger.Warn("discarding printer metadata with unknown schema version",
			zap.Int("version", file.Version))
		return
	}

	s.printers = file.Printers
}

func (s *Store) loadConfigs() {
	data, err := os.ReadFile(s.configsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read printer configs", zap.Error(err))
		}
		return
	}

	var file persistedConfigsFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("discarding unreadable printer configs", zap.Error(err))
		return
	}
	if file.Version != schemaVersion {
		s.logger.Warn("discarding printer configs with unknown schema version",
			zap.Int("version", file.Version))
		return
	}

	for role, cfg := range file.Configs {
		s.configs[role] = cfg
	}
}

func (s *Store) savePrintersLocked() {
	file := persistedPrintersFile{Version: schemaVersion, Printers: s.printers}
	data, err := json.MarshalIndent(file, "", "  ")
	if err == nil {
		err = os.WriteFile(s.printersPath, data, 0644)
	}
	if err != nil {
		s.logger.Warn("failed to save printer metadata", zap.Error(err))
	}
}

func (s *Store) saveConfigsLocked() {
	file := persistedConfigsFile{Version: schemaVersion, Configs: s.configs}
	data, err := json.MarshalIndent(file, "", "  ")
	if err == nil {
		err = os.WriteFile(s.configsPath, data, 0644)
	}
	if err != nil {
		s.logger.Warn("failed to save printer configs", zap.Error(err))
	}
}
