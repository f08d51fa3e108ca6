package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

var errBadInput = errors.New("bad input")

func TestObserve_Results(t *testing.T) {
	m := New()
	start := time.Now()

	m.Observe("asset_issue", start, nil)
	m.Observe("asset_issue", start, errBadInput, errBadInput)
	m.Observe("asset_issue", start, errors.New("disk"), errBadInput)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("asset_issue", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("asset_issue", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("asset_issue", ResultError)))
}

func TestCountEventViaBus(t *testing.T) {
	m := New()
	bus := event.NewBus(4)
	require.NoError(t, bus.SubscribeAll(m.CountEvent))

	bus.Emit(event.Event{Kind: event.KindVoucherIssued})
	bus.Emit(event.Event{Kind: event.KindVoucherIssued})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(string(event.KindVoucherIssued))))
}

func TestHandler_ServesGauges(t *testing.T) {
	m := New()
	m.SetVoucherRemaining(types.NewAmount(1234))
	m.SetAssets(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "assetledger_voucher_remaining 1234")
	assert.Contains(t, string(body), "assetledger_registry_assets 3")
}
