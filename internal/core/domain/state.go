package domain

import (
	"encoding/json"
	"time"
)

// Stage is the persisted position of an instance in the fulfillment
// workflow.
type Stage string

const (
	StageAwaitingAdvertiser Stage = "AwaitingAdvertiser"
	StageAwaitingCreative   Stage = "AwaitingCreative"
	StageAwaitingCampaigns  Stage = "AwaitingCampaigns"
	StageAwaitingFlights    Stage = "AwaitingFlights"
	StageComplete           Stage = "Complete"
	StageFailed             Stage = "Failed"
)

// Terminal reports whether no further transition can leave s.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// Operation names a mutation that can be applied to an instance. The first
// four double as the external events an instance waits for.
type Operation string

const (
	OpAdvertiser  Operation = "advertiser"
	OpCreative    Operation = "creative"
	OpCampaign    Operation = "campaign"
	OpFlight      Operation = "flight"
	OpCreativeMD5 Operation = "creative_md5"
	OpLease       Operation = "lease"
	OpBreak       Operation = "break"
	OpError       Operation = "error"
)

// Waitable reports whether op is an external event an instance can suspend on.
func (op Operation) Waitable() bool {
	switch op {
	case OpAdvertiser, OpCreative, OpCampaign, OpFlight:
		return true
	default:
		return false
	}
}

// InstanceState is the persisted document of one workflow instance.
// Request, MD5, Lease, Errors, Stage and Awaiting are owned by the
// orchestrator; Existing is rebuilt from the system-of-record on every read.
type InstanceState struct {
	Request  *CampaignRequest `json:"request,omitempty"`
	Existing Existing         `json:"existing"`
	MD5      string           `json:"md5,omitempty"`
	Lease    *Lease           `json:"lease,omitempty"`
	Errors   []ErrorEntry     `json:"errors"`
	Stage    Stage            `json:"stage,omitempty"`
	Awaiting Operation        `json:"awaiting,omitempty"`
}

// Existing is the reconciled view of the sub-resources registered so far.
type Existing struct {
	Advertiser *AdvertiserRecord `json:"advertiser"`
	Creative   *CreativeRecord   `json:"creative"`
	Campaigns  []CampaignRecord  `json:"campaigns"`
	Flights    []FlightRecord    `json:"flights"`
}

// CampaignByExternalID returns the reconciled campaign with the given
// external id, or nil.
func (e Existing) CampaignByExternalID(id string) *CampaignRecord {
	for i := range e.Campaigns {
		if e.Campaigns[i].ExternalCampaignID == id {
			return &e.Campaigns[i]
		}
	}
	return nil
}

// Claimant identifies an external worker asking for a lease.
type Claimant struct {
	Provider string `json:"provider" validate:"required"`
	AccessID string `json:"accessId" validate:"required"`
}

// Lease is a time-boxed claim on an instance.
type Lease struct {
	Expires  time.Time `json:"expires"`
	Provider string    `json:"provider"`
	AccessID string    `json:"accessId"`
}

// Active reports whether the lease still holds at now. A nil or expired
// lease is treated as absent everywhere.
func (l *Lease) Active(now time.Time) bool {
	return l != nil && now.Before(l.Expires)
}

// HeldBy reports whether the lease belongs to c.
func (l *Lease) HeldBy(c Claimant) bool {
	return l != nil && l.Provider == c.Provider && l.AccessID == c.AccessID
}

// ErrorEntry is one recorded fault. Entries are only ever appended.
type ErrorEntry struct {
	Type    string `json:"type" validate:"required"`
	Message string `json:"message"`
	Trace   string `json:"trace"`
}

// Normalize replaces nil collections with empty ones so that two documents
// with the same content serialize identically.
func (s *InstanceState) Normalize() {
	if s.Existing.Campaigns == nil {
		s.Existing.Campaigns = []CampaignRecord{}
	}
	if s.Existing.Flights == nil {
		s.Existing.Flights = []FlightRecord{}
	}
	if s.Errors == nil {
		s.Errors = []ErrorEntry{}
	}
}

// DecodeState decodes a stored instance document. Existing is rebuilt on
// every read, so a section that no longer decodes is dropped instead of
// failing the document.
func DecodeState(body []byte) (InstanceState, error) {
	var doc struct {
		InstanceState
		Existing json.RawMessage `json:"existing"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return InstanceState{}, err
	}
	state := doc.InstanceState
	if len(doc.Existing) > 0 {
		var ex Existing
		if err := json.Unmarshal(doc.Existing, &ex); err == nil {
			state.Existing = ex
		}
	}
	state.Normalize()
	return state, nil
}
