package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferStatus(t *testing.T) {
	t.Run("planned keyword", func(t *testing.T) {
		assert.Equal(t, StatusPlanned, InferStatus("Planned water outage on June 15", StatusUnknown))
	})

	t.Run("emergency keyword", func(t *testing.T) {
		assert.Equal(t, StatusEmergency, InferStatus("Due to an accident the gas supply is suspended", StatusUnknown))
	})

	t.Run("planned wins over emergency", func(t *testing.T) {
		assert.Equal(t, StatusPlanned, InferStatus("planned works to prevent an emergency", StatusEmergency))
	})

	t.Run("hint applies when no keyword", func(t *testing.T) {
		assert.Equal(t, StatusEmergency, InferStatus("water supply suspended in Ajapnyak", StatusEmergency))
	})

	t.Run("unknown without keyword or hint", func(t *testing.T) {
		assert.Equal(t, StatusUnknown, InferStatus("water supply suspended", StatusUnknown))
	})
}

func TestExtractTiming(t *testing.T) {
	loc := ServiceLocation()

	t.Run("two dated tokens", func(t *testing.T) {
		start, end := ExtractTiming("From 24.06.2025 10:00 until 25.06.2025 18:00 the water supply will be suspended")
		assert.Equal(t, time.Date(2025, 6, 24, 10, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 6, 25, 18, 0, 0, 0, loc), end)
	})

	t.Run("two dated tokens without clocks mean midnight", func(t *testing.T) {
		start, end := ExtractTiming("Outage from 24.06.2025 to 26.06.2025")
		assert.Equal(t, time.Date(2025, 6, 24, 0, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 6, 26, 0, 0, 0, 0, loc), end)
	})

	t.Run("one date with a time range", func(t *testing.T) {
		start, end := ExtractTiming("On 24.06.2025 10:00-18:00 in Yerevan, Abovyan street, planned works")
		assert.Equal(t, time.Date(2025, 6, 24, 10, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 6, 24, 18, 0, 0, 0, loc), end)
	})

	t.Run("one date with attached time only", func(t *testing.T) {
		start, end := ExtractTiming("Supply suspended from 24.06.2025 09:30")
		assert.Equal(t, time.Date(2025, 6, 24, 9, 30, 0, 0, loc), start)
		assert.True(t, end.IsZero())
	})

	t.Run("one bare date with one clock elsewhere", func(t *testing.T) {
		start, end := ExtractTiming("On 24.06.2025 the supply will stop at 14:00")
		assert.Equal(t, time.Date(2025, 6, 24, 14, 0, 0, 0, loc), start)
		assert.True(t, end.IsZero())
	})

	t.Run("month name with clock range uses current year", func(t *testing.T) {
		fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
		SetClock(fake)
		defer SetClock(nil)

		start, end := ExtractTiming("On June 15 from 11:00 to 17:00 the gas supply will be interrupted")
		assert.Equal(t, time.Date(2025, 6, 15, 11, 0, 0, 0, loc), start)
		assert.Equal(t, time.Date(2025, 6, 15, 17, 0, 0, 0, loc), end)
	})

	t.Run("no temporal information", func(t *testing.T) {
		start, end := ExtractTiming("Water supply suspended in the Ajapnyak district")
		assert.True(t, start.IsZero())
		assert.True(t, end.IsZero())
	})

	t.Run("invalid calendar values ignored", func(t *testing.T) {
		start, end := ExtractTiming("Broken stamp 45.13.2025 but valid 24.06.2025 10:00")
		assert.Equal(t, time.Date(2025, 6, 24, 10, 0, 0, 0, loc), start)
		assert.True(t, end.IsZero())
	})
}

func TestStructureAnnouncement(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2025, 6, 20, 8, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	ann := RawAnnouncement{
		Utility:   UtilityWater,
		Text:      "ՀՀ Երևան քաղաքի Աբովյան փողոցում ջրամատակարարումը կդադարեցվի",
		SourceURL: "https://interactive.vjur.am/",
		Hint:      StatusUnknown,
		FetchedAt: fake.Now(),
	}
	translated := "On 24.06.2025 10:00-18:00 in Yerevan, Abovyan street, planned water outage"
	entities := []Entity{
		{Group: EntityLocation, Word: "Yerevan", Score: 0.99},
		{Group: EntityLocation, Word: "Abovyan street", Score: 0.93},
		{Group: EntityOrganization, Word: "Veolia Jur", Score: 0.97},
		{Group: EntityLocation, Word: "  ", Score: 0.50},
	}

	rec := StructureAnnouncement(ann, translated, entities)

	loc := ServiceLocation()
	assert.Equal(t, UtilityWater, rec.Utility)
	assert.Equal(t, StatusPlanned, rec.Status)
	assert.Equal(t, time.Date(2025, 6, 24, 10, 0, 0, 0, loc), rec.StartTime)
	assert.Equal(t, time.Date(2025, 6, 24, 18, 0, 0, 0, loc), rec.EndTime)
	if diff := cmp.Diff([]string{"Yerevan", "Abovyan street"}, rec.Regions); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Yerevan", "Abovyan street"}, rec.Streets); diff != "" {
		t.Errorf("streets mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ann.Text, rec.RawText)
	assert.Equal(t, translated, rec.TranslatedText)
	assert.Equal(t, Fingerprint(ann.Text), rec.Fingerprint)
	assert.Equal(t, fake.Now(), rec.CreatedAt)
	assert.True(t, rec.HasTiming())

	t.Run("region and street lists do not alias", func(t *testing.T) {
		rec.Streets[0] = "mutated"
		require.Equal(t, "Yerevan", rec.Regions[0])
	})
}
