package session

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/delay"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

// Session is one live timed activity. Driver state is owned by the
// session and mutated only through its methods; callers get copies.
type Session struct {
	mu          sync.RWMutex
	id          string
	trackName   string
	sessionType model.SessionType
	category    string
	drivers     map[int]*model.DriverState
	lastUpdate  time.Time
	buffer      *delay.Buffer
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:          id,
		trackName:   "unknown",
		sessionType: model.SessionRace,
		drivers:     make(map[int]*model.DriverState),
		lastUpdate:  now,
		buffer:      delay.NewBuffer(),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Buffer() *delay.Buffer { return s.buffer }

func (s *Session) TrackName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trackName
}

func (s *Session) Type() model.SessionType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionType
}

func (s *Session) Category() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

func (s *Session) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Touch marks data arrival for the sweeper's inactivity check.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = now
}

// ApplyMetadata updates track and session info from a metadata message.
func (s *Session) ApplyMetadata(md *model.SessionMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if md.TrackName != "" {
		s.trackName = md.TrackName
	}
	if md.SessionType != "" {
		s.sessionType = md.SessionType
	}
	if md.Category != "" {
		s.category = md.Category
	}
}

// PlaceholderName is the driver name assigned to car ids that have not
// yet announced a real identity.
func PlaceholderName(carID int) string {
	return fmt.Sprintf("Car #%d", carID)
}

// UpdateDriverTiming refreshes the per-car timing state. Identity is
// last-write-wins: placeholder names never overwrite real ones, and a
// car without identity gets a placeholder derived from its id.
func (s *Session) UpdateDriverTiming(entry model.TimingEntry, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.drivers[entry.CarID]
	if !ok {
		ds = &model.DriverState{
			CarID:      entry.CarID,
			DriverName: PlaceholderName(entry.CarID),
		}
		s.drivers[entry.CarID] = ds
	}
	if entry.DriverID != "" {
		ds.DriverID = entry.DriverID
	}
	if entry.DriverName != "" {
		ds.DriverName = entry.DriverName
	}
	if entry.CarNumber != "" {
		ds.CarNumber = entry.CarNumber
	}
	ds.Position = entry.Position
	ds.Lap = entry.Lap
	ds.LapDistPct = entry.LapDistPct
	ds.Speed = entry.Speed
	ds.LastUpdate = now
}

// UpdateStrategy replaces the restricted strategy snapshot for a car.
func (s *Session) UpdateStrategy(carID int, strat model.StrategySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.drivers[carID]
	if !ok {
		ds = &model.DriverState{
			CarID:      carID,
			DriverName: PlaceholderName(carID),
		}
		s.drivers[carID] = ds
	}
	ds.Strategy = strat
}

// Driver returns a copy of the state for the given car id.
func (s *Session) Driver(carID int) (model.DriverState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.drivers[carID]
	if !ok {
		return model.DriverState{}, false
	}
	return *ds, true
}

// DriverByID returns a copy of the state for the given driver id.
func (s *Session) DriverByID(driverID string) (model.DriverState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ds := range s.drivers {
		if ds.DriverID == driverID {
			return *ds, true
		}
	}
	return model.DriverState{}, false
}

// Drivers returns copies of all driver states ordered by position.
func (s *Session) Drivers() []model.DriverState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := lo.Map(lo.Values(s.drivers),
		func(ds *model.DriverState, _ int) model.DriverState { return *ds })
	slices.SortFunc(ret, func(a, b model.DriverState) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return ret
}
