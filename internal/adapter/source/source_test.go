package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utilitywatch/outage-sentinel/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

const waterPage = `<html><body><div class="items"><div class="panel-group">
<div class="panel">
  <div class="panel-heading"><a>Yerevan, Ajapnyak district</a></div>
  <div class="panel-body">On 24.06.2025 10:00-18:00 the water supply will be suspended.</div>
</div>
<div class="panel">
  <div class="panel-heading"><a></a></div>
  <div class="panel-body"></div>
</div>
</div></div></body></html>`

func TestWaterFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(waterPage))
	}))
	defer srv.Close()

	f := NewWaterFetcher(srv.URL, time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, domain.UtilityWater, anns[0].Utility)
	assert.Equal(t, domain.StatusUnknown, anns[0].Hint)
	assert.Equal(t, srv.URL, anns[0].SourceURL)
	assert.Equal(t, "Yerevan, Ajapnyak district On 24.06.2025 10:00-18:00 the water supply will be suspended.", anns[0].Text)
}

func TestWaterFetcherServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewWaterFetcher(srv.URL, time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	assert.Error(t, err)
	assert.Empty(t, anns)
}

const gasPage = `<html><body><div class="announcements-list">
<div class="item">Gas supply interruption in   Kotayk region on 25.06.2025.</div>
<div class="item"></div>
</div></body></html>`

func TestGasFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(gasPage))
	}))
	defer srv.Close()

	f := NewGasFetcher(srv.URL+"/vtar/", srv.URL+"/plan/", time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, domain.StatusEmergency, anns[0].Hint)
	assert.Equal(t, srv.URL+"/vtar/", anns[0].SourceURL)
	assert.Equal(t, domain.StatusPlanned, anns[1].Hint)
	assert.Equal(t, "Gas supply interruption in Kotayk region on 25.06.2025.", anns[0].Text)
}

func TestGasFetcherPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vtar/" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(gasPage))
	}))
	defer srv.Close()

	f := NewGasFetcher(srv.URL+"/vtar/", srv.URL+"/plan/", time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	assert.Error(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, domain.StatusPlanned, anns[0].Hint)
}

const electricPage = `<html><body>
<div id="ctl00_ContentPlaceHolder1_attenbody">Planned works on June 26 from 10:00 to 16:00 in Davtashen district.</div>
<table id="ctl00_ContentPlaceHolder1_vtarayin"><tbody>
<tr><td class="termination-date"><span>24.06.2025 11:30</span></td><td>Yerevan, Komitas avenue</td></tr>
<tr><td class="termination-date"><span></span></td><td></td></tr>
</tbody></table>
</body></html>`

func TestElectricFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(electricPage))
	}))
	defer srv.Close()

	f := NewElectricFetcher(srv.URL, time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, anns, 2)

	assert.Equal(t, domain.StatusPlanned, anns[0].Hint)
	assert.Contains(t, anns[0].Text, "Planned works on June 26")

	assert.Equal(t, domain.StatusEmergency, anns[1].Hint)
	assert.Equal(t, "24.06.2025 11:30 Yerevan, Komitas avenue", anns[1].Text)
}

func TestNoOutageSentinelYieldsNothing(t *testing.T) {
	const page = `<html><body><div class="items"><div class="panel-group">
	<div class="panel">
	  <div class="panel-heading"><a>Հայտարարություն</a></div>
	  <div class="panel-body">Ներկայումս պլանային անջատումներ չկան։</div>
	</div>
	</div></div></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewWaterFetcher(srv.URL, time.Second, testLogger())
	anns, err := f.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestFetcherUtilities(t *testing.T) {
	assert.Equal(t, domain.UtilityWater, NewWaterFetcher("", 0, testLogger()).Utility())
	assert.Equal(t, domain.UtilityGas, NewGasFetcher("", "", 0, testLogger()).Utility())
	assert.Equal(t, domain.UtilityElectric, NewElectricFetcher("", 0, testLogger()).Utility())
}
