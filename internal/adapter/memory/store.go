package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type tableKey struct {
	partition string
	row       string
}

type document struct {
	body    []byte
	version int64
}

// Store keeps the system-of-record tables, instance documents and host
// registry in memory. It implements every storage port and is safe for
// concurrent use.
type Store struct {
	mu sync.RWMutex

	advertisers map[tableKey]domain.AdvertiserRecord
	creatives   map[tableKey]domain.CreativeRecord
	campaigns   map[tableKey]domain.CampaignRecord
	flights     map[tableKey]domain.FlightRecord
	documents   map[string]document
	instances   map[string]port.InstanceStatus
}

var (
	_ port.AdvertiserRepository = (*Store)(nil)
	_ port.CreativeRepository   = (*Store)(nil)
	_ port.CampaignRepository   = (*Store)(nil)
	_ port.FlightRepository     = (*Store)(nil)
	_ port.DocumentStore        = (*Store)(nil)
	_ port.InstanceRegistry     = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		advertisers: make(map[tableKey]domain.AdvertiserRecord),
		creatives:   make(map[tableKey]domain.CreativeRecord),
		campaigns:   make(map[tableKey]domain.CampaignRecord),
		flights:     make(map[tableKey]domain.FlightRecord),
		documents:   make(map[string]document),
		instances:   make(map[string]port.InstanceStatus),
	}
}

func (s *Store) FindAdvertiser(_ context.Context, tenant uuid.UUID, externalAdvertiserID string) (*domain.AdvertiserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.advertisers {
		if rec.PartitionKey == tenant && rec.ExternalAdvertiserID == externalAdvertiserID {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateAdvertiser(_ context.Context, rec domain.AdvertiserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tableKey{rec.PartitionKey.String(), rec.RowKey.String()}
	if _, exists := s.advertisers[key]; exists {
		return port.ErrDuplicateRecord
	}
	s.advertisers[key] = rec
	return nil
}

func (s *Store) DeleteAdvertiser(_ context.Context, tenant uuid.UUID, externalAdvertiserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.advertisers {
		if rec.PartitionKey == tenant && rec.ExternalAdvertiserID == externalAdvertiserID {
			delete(s.advertisers, key)
		}
	}
	return nil
}

// AdvertiserRecords returns every stored advertiser.
func (s *Store) AdvertiserRecords() []domain.AdvertiserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.AdvertiserRecord, 0, len(s.advertisers))
	for _, rec := range s.advertisers {
		items = append(items, rec)
	}
	return items
}

func (s *Store) FindCreative(_ context.Context, advertiser uuid.UUID, md5 string) (*domain.CreativeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.creatives[tableKey{advertiser.String(), md5}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) FindCreativeByExternalID(_ context.Context, externalCreativeID string) (*domain.CreativeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.creatives {
		if rec.ExternalCreativeID == externalCreativeID {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateCreative(_ context.Context, rec domain.CreativeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tableKey{rec.PartitionKey.String(), rec.RowKey}
	if _, exists := s.creatives[key]; exists {
		return port.ErrDuplicateRecord
	}
	s.creatives[key] = rec
	return nil
}

func (s *Store) ListCampaigns(_ context.Context, advertiser uuid.UUID, instanceID string) ([]domain.CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.CampaignRecord, 0)
	for _, rec := range s.campaigns {
		if rec.PartitionKey == advertiser && rec.InstanceID == instanceID {
			items = append(items, rec)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].RowKey.String() < items[j].RowKey.String()
	})
	return items, nil
}

func (s *Store) FindCampaignByExternalID(_ context.Context, externalCampaignID string) (*domain.CampaignRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.campaigns {
		if rec.ExternalCampaignID == externalCampaignID {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateCampaign(_ context.Context, rec domain.CampaignRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tableKey{rec.PartitionKey.String(), rec.RowKey.String()}
	if _, exists := s.campaigns[key]; exists {
		return port.ErrDuplicateRecord
	}
	s.campaigns[key] = rec
	return nil
}

func (s *Store) ListFlights(_ context.Context, externalCampaignID string) ([]domain.FlightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.FlightRecord, 0)
	for _, rec := range s.flights {
		if rec.PartitionKey == externalCampaignID {
			items = append(items, rec)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Start != items[j].Start {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].RowKey.String() < items[j].RowKey.String()
	})
	return items, nil
}

func (s *Store) DeleteFlights(_ context.Context, externalCampaignID string, start, end civil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.flights {
		if rec.PartitionKey == externalCampaignID && rec.Start == start && rec.End == end {
			delete(s.flights, key)
		}
	}
	return nil
}

func (s *Store) CreateFlight(_ context.Context, rec domain.FlightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tableKey{rec.PartitionKey, rec.RowKey.String()}
	if _, exists := s.flights[key]; exists {
		return port.ErrDuplicateRecord
	}
	s.flights[key] = rec
	return nil
}

// Load decodes a fresh copy of the stored document on every call.
func (s *Store) Load(_ context.Context, instanceID string) (port.Document, error) {
	s.mu.RLock()
	doc, ok := s.documents[instanceID]
	s.mu.RUnlock()
	if !ok {
		return port.Document{}, nil
	}

	state, err := domain.DecodeState(doc.body)
	if err != nil {
		return port.Document{}, err
	}
	return port.Document{State: state, Version: doc.version}, nil
}

func (s *Store) Save(_ context.Context, instanceID string, state domain.InstanceState, version int64) (int64, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.documents[instanceID].version != version {
		return 0, port.ErrVersionConflict
	}
	next := version + 1
	s.documents[instanceID] = document{body: body, version: next}
	return next, nil
}

// RawDocument returns the stored JSON of an instance document.
func (s *Store) RawDocument(instanceID string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.documents[instanceID].body...)
}

func (s *Store) CreateInstance(_ context.Context, st port.InstanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[st.InstanceID]; exists {
		return port.ErrDuplicateRecord
	}
	s.instances[st.InstanceID] = st
	return nil
}

func (s *Store) UpdateInstance(_ context.Context, instanceID string, status port.RuntimeStatus, custom string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.instances[instanceID]
	if !exists {
		return port.ErrNotFound
	}
	st.RuntimeStatus = status
	st.CustomStatus = custom
	st.LastUpdatedTime = at
	s.instances[instanceID] = st
	return nil
}

func (s *Store) GetInstance(_ context.Context, instanceID string) (*port.InstanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.instances[instanceID]
	if !exists {
		return nil, nil
	}
	return &st, nil
}

func (s *Store) ListRunning(_ context.Context) ([]port.InstanceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]port.InstanceStatus, 0)
	for _, st := range s.instances {
		if st.RuntimeStatus == port.RuntimeRunning {
			items = append(items, st)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedTime.Equal(items[j].CreatedTime) {
			return items[i].CreatedTime.Before(items[j].CreatedTime)
		}
		return items[i].InstanceID < items[j].InstanceID
	})
	return items, nil
}
