package domain

import "time"

// Utility identifies one of the three monitored utility services.
type Utility string

const (
	UtilityWater    Utility = "water"
	UtilityGas      Utility = "gas"
	UtilityElectric Utility = "electric"
)

// Utilities lists every monitored utility in a stable order.
var Utilities = []Utility{UtilityWater, UtilityGas, UtilityElectric}

// Status classifies an outage announcement.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusEmergency Status = "emergency"
	StatusUnknown   Status = "unknown"
)

// RawAnnouncement is one announcement as fetched from a source site,
// still in the source language. It is transient: produced by a fetcher,
// consumed once by the ingestion pipeline.
type RawAnnouncement struct {
	Utility   Utility
	Text      string
	SourceURL string
	// Hint carries the status implied by where on the page the text was
	// found (e.g. the ENA emergency table vs its planned block). It only
	// applies when the text itself is inconclusive.
	Hint      Status
	FetchedAt time.Time
}

// EntityGroup is the class a NER model assigned to a span of text.
type EntityGroup string

const (
	EntityLocation     EntityGroup = "LOC"
	EntityOrganization EntityGroup = "ORG"
	EntityPerson       EntityGroup = "PER"
	EntityMisc         EntityGroup = "MISC"
)

// Entity is one named entity extracted from translated announcement text.
type Entity struct {
	Group EntityGroup `json:"entity_group"`
	Word  string      `json:"word"`
	Score float64     `json:"score"`
}

// OutageRecord is a structured outage announcement. Records are written
// once, never mutated, and retained for audit and dedup lookups.
type OutageRecord struct {
	// Fingerprint is the SHA-256 hex digest of the raw source text and the
	// record's identity key; unique in the store.
	Fingerprint string    `json:"fingerprint"`
	Utility     Utility   `json:"utility"`
	SourceURL   string    `json:"source_url"`
	Status      Status    `json:"status"`
	StartTime   time.Time `json:"start_time,omitzero"`
	EndTime     time.Time `json:"end_time,omitzero"`

	// Regions and Streets hold LOC entities in extraction order. Both are
	// seeded from the same location set; see the package doc. An empty
	// Regions list means extraction found no location, NOT "area-wide".
	Regions []string `json:"regions"`
	Streets []string `json:"streets"`

	RawText        string    `json:"raw_text"`
	TranslatedText string    `json:"translated_text"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasTiming reports whether any start time was extracted.
func (r OutageRecord) HasTiming() bool { return !r.StartTime.IsZero() }

// TrackedAddress is an address a subscriber watches. The subscriber-facing
// layer owns these rows; the engine only reads them.
type TrackedAddress struct {
	SubscriberID int64
	Region       string
	Street       string
}

// DeliveryReceipt records that a notification for one event key was
// handed to the transport for one subscriber. At most one receipt ever
// exists per (subscriber, event key) pair.
type DeliveryReceipt struct {
	SubscriberID int64
	EventKey     string
	SentAt       time.Time
}
