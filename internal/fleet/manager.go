package fleet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lift-control/lcc/internal/unit"
)

var (
	ErrUnitNotFound    = errors.New("NOT_FOUND")
	ErrNoUnitAvailable = errors.New("UNAVAILABLE")
)

// UnitList represents the response format for GET /units.
type UnitList struct {
	Floors int           `json:"floors"`
	Items  []unit.Status `json:"items"`
}

// Manager manages the unit controllers of a building.
type Manager struct {
	mu     sync.RWMutex
	units  map[int]*unit.Controller
	floors int
	log    zerolog.Logger
}

// NewManager creates count controllers with ids 0..count-1, all parked at
// floor 0 with their workers running.
func NewManager(count, floors int, timing unit.Timing, notifier unit.Notifier, logger zerolog.Logger) *Manager {
	m := &Manager{
		units:  make(map[int]*unit.Controller, count),
		floors: floors,
		log:    logger.With().Str("component", "fleet").Logger(),
	}
	for id := 0; id < count; id++ {
		m.units[id] = unit.New(id, timing, notifier, logger)
	}
	m.log.Info().Int("units", count).Int("floors", floors).Msg("Fleet started")
	return m
}

// Floors returns the number of floors served.
func (m *Manager) Floors() int {
	return m.floors
}

// Get returns a unit by id.
func (m *Manager) Get(id int) (*unit.Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.units[id]
	if !exists {
		return nil, fmt.Errorf("%w: unit %d", ErrUnitNotFound, id)
	}
	return c, nil
}

// List returns a status snapshot of every unit ordered by id.
func (m *Manager) List() *UnitList {
	m.mu.RLock()
	items := make([]unit.Status, 0, len(m.units))
	for _, c := range m.units {
		items = append(items, c.Status())
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &UnitList{Floors: m.floors, Items: items}
}

// Nearest returns the operational unit closest to floor, preferring the
// lowest id on ties.
func (m *Manager) Nearest(floor int) (*unit.Controller, error) {
	var best *unit.Controller
	bestDistance := 0

	for _, s := range m.List().Items {
		if !s.Operational() {
			continue
		}
		distance := s.Floor - floor
		if distance < 0 {
			distance = -distance
		}
		if best == nil || distance < bestDistance {
			best, _ = m.Get(s.ID)
			bestDistance = distance
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no operational unit", ErrNoUnitAvailable)
	}
	return best, nil
}

// Close stops every unit worker.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, c := range m.units {
		wg.Add(1)
		go func(c *unit.Controller) {
			defer wg.Done()
			c.Stop()
		}(c)
	}
	wg.Wait()
	m.log.Info().Msg("Fleet stopped")
}
