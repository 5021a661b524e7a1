// Package domain models Armenian public-utility outage announcements.
//
// # Data Sources
//
// Announcements are scraped from the three utility operators' public sites:
//
//	water    Veolia Jur       https://interactive.vjur.am/
//	gas      Gazprom Armenia  https://armenia-am.gazprom.com/notice/announcement/{plan,vtar}/
//	electric ENA              https://www.ena.am/Info.aspx?id=5&lang=1
//
// Source text is Armenian free-form prose. It is machine-translated to
// English and run through a token-classification (NER) model before
// structuring, so every downstream field is best-effort.
//
// # Entity Conventions
//
// The NER model emits entity groups LOC, ORG, PER and MISC. It does not
// distinguish a region ("Yerevan", "Kotayk") from a street ("Abovyan
// street"), so LOC entities seed both the Regions and Streets lists of a
// record. This is a known modeling simplification carried over from the
// source system, not a bug; a gazetteer-based split is a possible future
// enrichment stage.
//
// # Date/Time Conventions
//
// Announcements mix several timestamp styles:
//
//	"24.06.2025 10:00"   numeric date, optionally with a time attached
//	"10:00", "18:00"     bare times referring to a nearby date
//	"June 24"            month-name date, year implied
//
// Bare-time and month-name forms are interpreted in the service area's
// civil timezone (Asia/Yerevan) with the current year assumed. A record
// whose timing cannot be parsed keeps zero Start/End times and remains
// valid: it is still stored and still matchable by location.
//
// # Identity
//
// A record's identity is the SHA-256 of its raw Armenian source text,
// computed before translation or extraction. Re-ingesting the same
// announcement always produces the same fingerprint even when the
// translation or NER output varies between runs, which makes store
// inserts idempotent (INSERT ... ON CONFLICT DO NOTHING downstream).
// Delivery identity is separate: an event key binds a record to the
// specific subscriber address it matched, so delivery stays at-most-once
// per subscriber per matched address rather than per record.
package domain
