package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordActivityLogged(t *testing.T) {
	before := testutil.ToFloat64(activitiesLogged.WithLabelValues("transport", "voice"))
	RecordActivityLogged("transport", "voice", 3.45)
	if got := testutil.ToFloat64(activitiesLogged.WithLabelValues("transport", "voice")); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}

	beforeForm := testutil.ToFloat64(activitiesLogged.WithLabelValues("energy", "form"))
	RecordActivityLogged("energy", "", 0)
	if got := testutil.ToFloat64(activitiesLogged.WithLabelValues("energy", "form")); got != beforeForm+1 {
		t.Fatalf("empty source should count as form")
	}
}

func TestRecordVoiceCommandUnmatched(t *testing.T) {
	before := testutil.ToFloat64(voiceCommands.WithLabelValues("none"))
	RecordVoiceCommand("")
	if got := testutil.ToFloat64(voiceCommands.WithLabelValues("none")); got != before+1 {
		t.Fatalf("expected none label incremented")
	}
}

func TestRecordExportWatermark(t *testing.T) {
	ts := time.Unix(1_750_000_000, 0)
	RecordExport(true, ts)
	if got := testutil.ToFloat64(lastExportGauge); got != float64(ts.Unix()) {
		t.Fatalf("unexpected watermark %v", got)
	}
}
